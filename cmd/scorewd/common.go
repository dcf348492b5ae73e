package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

func writeOutput(name string, data []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(name); err == nil {
			return fmt.Errorf("output file already exists: %s", name)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}
	return nil
}
