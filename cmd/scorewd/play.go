package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scorewd/state"
	"scorewd/viewer"
)

// transport is the part of viewer scripted commands drive.
type transport interface {
	PlayPause()
	Stop()
	Seek(t float64)
	Select(elid string) bool
	Skip(dir int)
	ToggleAltTrack()
	ToggleAutoScroll() bool
	ToggleZoom() bool
}

func (s scriptStep) apply(t transport, playing bool, log *zap.Logger) {
	log.Info("Script step", zap.Stringer("step", s))
	switch s.op {
	case opPlay:
		if !playing {
			t.PlayPause()
		}
	case opPause:
		if playing {
			t.PlayPause()
		}
	case opStop:
		t.Stop()
	case opSeek:
		t.Seek(s.value)
	case opSelect:
		if !t.Select(s.elid) {
			log.Warn("Element has no events, nothing to select", zap.String("elid", s.elid))
		}
	case opSkip:
		dir, n := 1, int(s.value)
		if n < 0 {
			dir, n = -1, -n
		}
		for range n {
			t.Skip(dir)
		}
	case opToggleAlt:
		t.ToggleAltTrack()
	case opToggleScroll:
		log.Info("Auto scroll toggled", zap.Bool("enabled", t.ToggleAutoScroll()))
	case opZoom:
		log.Info("Zoom toggled", zap.Bool("zoomed", t.ToggleZoom()))
	}
}

func runPlay(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("play")

	if cmd.Args().Len() == 0 {
		return errors.New("no score source has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	src := cmd.Args().Get(0)

	steps, err := parseScript(cmd.StringSlice("script"))
	if err != nil {
		return err
	}
	if cmd.Bool("alt") {
		env.Cfg.Playback.AltTrack = true
	}
	limit := cmd.Duration("duration")
	env.ForceCodePage(cmd.String("force-zip-cp"), log)

	v := viewer.New(ctx, env.Cfg, env.CodePage, env.Log)
	defer func() {
		err = multierr.Append(err, v.Close())
	}()

	log.Info("Playback starting", zap.String("source", src), zap.Int("script steps", len(steps)), zap.Duration("duration", limit))
	if err := v.SetSource(src); err != nil {
		return fmt.Errorf("unable to open score: %w", err)
	}

	var (
		begin      = time.Now()
		deadline   = begin.Add(2 * env.Cfg.Source.RequestTimeout)
		started    time.Time
		everPlayed bool
		next       int
		counts     [4]int
		runErr     error
	)
	err = v.Run(ctx, func(st viewer.FrameState) bool {
		now := time.Now()
		if st.Errored {
			return false
		}
		if st.Pages != counts {
			counts = st.Pages
			log.Debug("Page loading", zap.Ints("by state", counts[:]))
		}
		if st.HighlightChanged {
			log.Info("Highlight", zap.String("elid", st.Highlight), zap.Float64p("time", st.Time))
		}
		if st.ScrollTarget != nil {
			log.Debug("Auto scroll", zap.Float64("target", *st.ScrollTarget), zap.Float64("from", st.ScrollLeft))
		}

		playing := st.Playback.Playing
		if started.IsZero() {
			if !st.Playback.Loaded {
				if now.After(deadline) {
					runErr = errors.New("score audio did not load in time")
					return false
				}
				return true
			}
			started = now
			v.PlayPause()
			log.Info("Playback started", zap.Duration("load time", now.Sub(begin)))
			return true
		}
		everPlayed = everPlayed || playing

		elapsed := now.Sub(started)
		for ; next < len(steps) && steps[next].at <= elapsed; next++ {
			steps[next].apply(v, playing, log)
		}
		if limit > 0 {
			if elapsed >= limit {
				log.Info("Playback duration reached", zap.Duration("elapsed", elapsed))
				return false
			}
			return true
		}
		if next == len(steps) && everPlayed && !playing && st.Playback.ProgressRatio >= 1 {
			log.Info("Playback ended", zap.Duration("elapsed", elapsed))
			return false
		}
		return true
	})

	if env.Rpt != nil {
		env.Rpt.StoreData("play/positions.txt", []byte(v.Index().String()))
	}

	switch {
	case v.Err() != nil:
		return v.Err()
	case runErr != nil:
		return runErr
	case errors.Is(err, context.Canceled):
		log.Info("Playback interrupted")
		return nil
	}
	return err
}
