package fetch

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"scorewd/archive"
)

type dirFetcher struct {
	dir string
	log *zap.Logger
}

// NewDir returns fetcher reading score files from local directory.
func NewDir(dir string, log *zap.Logger) (Fetcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to access score directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("score source %q is not a directory", dir)
	}
	return &dirFetcher{dir: abs, log: log}, nil
}

func (f *dirFetcher) Locate(name string) string {
	return filepath.Join(f.dir, filepath.FromSlash(name))
}

func (f *dirFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Locate(name))
	if err != nil {
		return nil, err
	}
	f.log.Debug("Read", zap.String("file", name), zap.Int("size", len(data)))
	return data, nil
}

func (f *dirFetcher) Close() error {
	return nil
}

type bundleFetcher struct {
	b       *archive.Bundle
	zipPath string
	log     *zap.Logger
}

// NewBundle returns fetcher for zipped score directory.
func NewBundle(name string, cp encoding.Encoding, log *zap.Logger) (Fetcher, error) {
	b, err := archive.OpenBundle(name, cp)
	if err != nil {
		return nil, fmt.Errorf("unable to open score bundle: %w", err)
	}
	log.Debug("Opened score bundle", zap.String("path", name), zap.String("root", b.Root()), zap.Strings("files", b.Names()))
	return &bundleFetcher{b: b, zipPath: name, log: log}, nil
}

func (f *bundleFetcher) Locate(name string) string {
	return f.zipPath + "!/" + path.Join(f.b.Root(), name)
}

func (f *bundleFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.b.ReadFile(name)
}

func (f *bundleFetcher) Close() error {
	return f.b.Close()
}
