package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scorewd/fetch"
	"scorewd/render"
	"scorewd/score"
	"scorewd/state"
)

func runRender(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("render")

	if cmd.Args().Len() == 0 {
		return errors.New("no score source has been specified")
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	src, dst := cmd.Args().Get(0), cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("unable to create destination directory: %w", err)
	}
	env.ForceCodePage(cmd.String("force-zip-cp"), log)

	cfg := &env.Cfg.Render
	if cmd.IsSet("width") {
		cfg.Width = int(cmd.Int("width"))
	}
	r, err := render.NewRenderer(cfg, log)
	if err != nil {
		return err
	}

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
		log.Warn("Unable to load positions, highlighting is not possible", zap.Error(err))
	}
	idx := score.ParsePositions(string(mpos), log)

	measure, suffix := cmd.String("measure"), ""
	pages := make([]int, 0, meta.Pages)
	if len(measure) > 0 {
		e, ok := idx.Elements[measure]
		if !ok {
			return fmt.Errorf("element %q not found in score positions", measure)
		}
		pages, suffix = append(pages, e.Page), "m"+measure
	} else {
		for p := range meta.Pages {
			pages = append(pages, p)
		}
	}

	log.Info("Rendering starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", cfg.Format), zap.Int("pages", len(pages)))
	defer func(start time.Time) {
		log.Info("Rendering completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	namer := render.NewNamer(cfg, meta, src)
	overwrite := cmd.Bool("overwrite")
	thumbs := make([]image.Image, 0, len(pages))
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := renderPage(ctx, f, r, idx, p, measure)
		if err != nil {
			log.Error("Unable to render page", zap.Int("page", p+1), zap.Error(err))
			continue
		}
		thumbs = append(thumbs, img)

		if err := saveImage(r, namer, img, dst, p, suffix, overwrite, log); err != nil {
			return err
		}
	}

	if cmd.Bool("sheet") && len(thumbs) > 0 {
		if err := saveImage(r, namer, r.Sheet(thumbs), dst, -1, "", overwrite, log); err != nil {
			return err
		}
	}
	if len(thumbs) == 0 {
		return errors.New("no pages were rendered")
	}
	return nil
}

func renderPage(ctx context.Context, f fetch.Fetcher, r *render.Renderer, idx *score.Index, page int, elid string) (image.Image, error) {
	data, err := f.Fetch(ctx, fetch.PageName(page))
	if err != nil {
		return nil, err
	}
	return r.Page(data, idx, page, elid)
}

func saveImage(r *render.Renderer, namer *render.Namer, img image.Image, dst string, page int, suffix string, overwrite bool, log *zap.Logger) error {
	name, err := namer.Name(page, suffix)
	if err != nil {
		log.Warn("Unable to use output name template, using default name", zap.String("name", name), zap.Error(err))
	}
	data, err := r.Encode(img)
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", name, err)
	}
	out := filepath.Join(dst, name)
	if err := writeOutput(out, data, overwrite); err != nil {
		return err
	}
	log.Debug("Image written", zap.String("file", out), zap.Int("size", len(data)))
	return nil
}
