package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scorewd/archive"
	"scorewd/fetch"
	"scorewd/score"
	"scorewd/state"
	"scorewd/utils/debug"
)

func runInspect(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inspect")

	if cmd.Args().Len() == 0 {
		return errors.New("no score source has been specified")
	}
	src, dst := cmd.Args().Get(0), cmd.Args().Get(1)
	env.ForceCodePage(cmd.String("force-zip-cp"), log)

	f, err := fetch.New(src, &env.Cfg.Source, env.CodePage, log)
	if err != nil {
		return fmt.Errorf("unable to open score: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	data, err := f.Fetch(ctx, fetch.MetaName)
	if err != nil {
		return fmt.Errorf("unable to load metadata: %w", err)
	}
	meta, err := score.ParseMeta(data)
	if err != nil {
		return err
	}
	mpos, err := f.Fetch(ctx, fetch.PositionsName)
	if err != nil {
		log.Warn("Unable to load positions, score will not be followed", zap.Error(err))
	}
	idx := score.ParsePositions(string(mpos), log)

	tw := debug.NewTreeWriter()
	tw.Line(0, "Source: %s", src)
	tw.Line(0, "Pages: %d", meta.Pages)
	for p := range meta.Pages {
		tw.Line(1, "Page[%d] elements[%d] %s", p+1, len(idx.ElementsOnPage(p)), f.Locate(fetch.PageName(p)))
	}
	tw.Line(0, "Audio: %s", f.Locate(fetch.AudioName))
	if strings.HasSuffix(strings.ToLower(src), ".zip") {
		if b, err := archive.OpenBundle(src, env.CodePage); err == nil {
			tw.List(0, "Bundle "+b.Root(), b.Names())
			b.Close()
		}
	}

	out := meta.String() + tw.String() + idx.String()
	if env.Rpt != nil {
		env.Rpt.StoreData("inspect/score.txt", []byte(out))
	}

	if len(dst) == 0 {
		_, err = os.Stdout.WriteString(out)
		return err
	}
	log.Info("Writing score dump", zap.String("file", dst))
	return writeOutput(dst, []byte(out), true)
}
