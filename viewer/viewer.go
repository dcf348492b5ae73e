// Package viewer is the score display core: it switches score sources,
// drives page loading, playback and auto scrolling from a single frame loop
// and maps selection of score elements back to playback position.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"scorewd/common"
	"scorewd/config"
	"scorewd/fetch"
	"scorewd/loader"
	"scorewd/playback"
	"scorewd/score"
	"scorewd/view"
)

// ErrMetadata marks failure to obtain score metadata, viewer stays errored
// until a new source is set.
var ErrMetadata = errors.New("score metadata unavailable")

// OpenFunc creates fetcher for score source.
type OpenFunc func(source string) (fetch.Fetcher, error)

type docKind int

const (
	docMeta docKind = iota
	docPositions
)

type docResult struct {
	gen  uint64
	kind docKind
	data []byte
	err  error
}

// session is everything tied to a single score source.
type session struct {
	id      uuid.UUID
	gen     uint64
	source  string
	fetcher fetch.Fetcher
	// media locations to score file names
	media map[string]string
}

// Viewer must be driven from a single goroutine: SetSource, Frame and
// commands are not safe for concurrent use.
type Viewer struct {
	cfg  *config.Config
	log  *zap.Logger
	open OpenFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	gen  uint64
	sess atomic.Pointer[session]
	docs chan docResult

	meta    *score.Meta
	index   *score.Index
	cursor  score.Cursor
	errored bool
	err     error

	pages    *loader.Scheduler
	player   *playback.Controller
	scroller *view.AutoScroller

	time      *float64
	highlight string
}

// New creates viewer with virtual media backends. cp is used for non UTF-8
// names in zip bundles and may be nil.
func New(ctx context.Context, cfg *config.Config, cp encoding.Encoding, log *zap.Logger) *Viewer {
	log = log.Named("viewer")
	open := func(source string) (fetch.Fetcher, error) {
		return fetch.New(source, &cfg.Source, cp, log)
	}
	v := newViewer(ctx, cfg, open, log)

	main := playback.NewVirtual(v.ctx, v.openMedia, log)
	var alt playback.Media
	if cfg.Playback.AltTrack {
		alt = playback.NewVirtual(v.ctx, v.openMedia, log)
	}
	v.player = playback.NewController(main, alt, log)
	return v
}

// NewWithMedia creates viewer over provided fetcher factory and media
// handles, alt may be nil.
func NewWithMedia(ctx context.Context, cfg *config.Config, open OpenFunc, main, alt playback.Media, log *zap.Logger) *Viewer {
	log = log.Named("viewer")
	v := newViewer(ctx, cfg, open, log)
	v.player = playback.NewController(main, alt, log)
	return v
}

func newViewer(ctx context.Context, cfg *config.Config, open OpenFunc, log *zap.Logger) *Viewer {
	ctx, cancel := context.WithCancel(ctx)
	return &Viewer{
		cfg:      cfg,
		log:      log,
		open:     open,
		ctx:      ctx,
		cancel:   cancel,
		docs:     make(chan docResult, 4),
		index:    score.ParsePositions("", log),
		pages:    loader.New(ctx, &cfg.Loader, log),
		scroller: view.NewAutoScroller(&cfg.View, log),
	}
}

// openMedia resolves media source of the current session, it runs on media
// load goroutines.
func (v *Viewer) openMedia(ctx context.Context, src string) ([]byte, error) {
	s := v.sess.Load()
	if s == nil {
		return nil, fmt.Errorf("no score source for media %q", src)
	}
	name, ok := s.media[src]
	if !ok {
		return nil, fmt.Errorf("media %q does not belong to current score", src)
	}
	return s.fetcher.Fetch(ctx, name)
}

// SetSource switches viewer to a new score. Everything related to previous
// source is dropped, metadata and positions are requested asynchronously
// and applied by Frame. Same source is ignored.
func (v *Viewer) SetSource(source string) error {
	old := v.sess.Load()
	if old != nil && old.source == source {
		return nil
	}

	v.gen++
	v.meta, v.errored, v.err = nil, false, nil
	v.index = score.ParsePositions("", v.log)
	v.cursor.Reset()
	v.time, v.highlight = nil, ""
	v.pages.Reset(0, nil)
	v.scroller.SetPages(0, score.PageFormat{})

	f, err := v.open(source)
	if err != nil {
		v.sess.Store(&session{gen: v.gen, source: source})
		v.fail(err)
		v.player.SetSources("", "")
		v.closeSession(old)
		return v.err
	}

	s := &session{
		id:      uuid.New(),
		gen:     v.gen,
		source:  source,
		fetcher: f,
		media:   map[string]string{f.Locate(fetch.AudioName): fetch.AudioName},
	}
	alt := ""
	if v.cfg.Playback.AltTrack {
		alt = f.Locate(fetch.AltAudioName)
		s.media[alt] = fetch.AltAudioName
	}
	v.sess.Store(s)
	v.closeSession(old)

	v.log.Info("Score source set", zap.String("source", source), zap.Stringer("session", s.id))

	v.requestDoc(s, docMeta, fetch.MetaName)
	v.requestDoc(s, docPositions, fetch.PositionsName)
	v.player.SetSources(f.Locate(fetch.AudioName), alt)
	return nil
}

func (v *Viewer) requestDoc(s *session, kind docKind, name string) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		data, err := s.fetcher.Fetch(v.ctx, name)
		select {
		case v.docs <- docResult{gen: s.gen, kind: kind, data: data, err: err}:
		case <-v.ctx.Done():
		}
	}()
}

func (v *Viewer) closeSession(s *session) {
	if s == nil || s.fetcher == nil {
		return
	}
	if err := s.fetcher.Close(); err != nil {
		v.log.Debug("Unable to close previous source", zap.String("source", s.source), zap.Error(err))
	}
}

func (v *Viewer) fail(err error) {
	v.errored = true
	v.err = fmt.Errorf("%w: %w", ErrMetadata, err)
	v.log.Warn("Score is not available", zap.Error(err))
}

func (v *Viewer) applyDocs() {
	for {
		select {
		case d := <-v.docs:
			if d.gen != v.gen {
				continue
			}
			switch d.kind {
			case docMeta:
				v.applyMeta(d.data, d.err)
			case docPositions:
				if d.err != nil {
					// positions are optional, score is shown without highlighting
					v.log.Debug("Position document not loaded", zap.Error(d.err))
					continue
				}
				v.index = score.ParsePositions(string(d.data), v.log)
				v.cursor.Reset()
			}
		default:
			return
		}
	}
}

func (v *Viewer) applyMeta(data []byte, err error) {
	if err == nil {
		v.meta, err = score.ParseMeta(data)
	}
	if err != nil {
		v.fail(err)
		return
	}
	s := v.sess.Load()
	f := s.fetcher
	v.pages.Reset(v.meta.Pages, func(ctx context.Context, page int) ([]byte, error) {
		return f.Fetch(ctx, fetch.PageName(page))
	})
	v.scroller.SetPages(v.meta.Pages, v.meta.PageFormat)
	v.log.Info("Score loaded", zap.String("title", v.meta.Title), zap.Int("pages", v.meta.Pages), zap.Stringer("session", s.id))
}

// FrameState is the outcome of a single frame.
type FrameState struct {
	Loaded  bool
	Errored bool
	// Time is the last reported playback position, nil when unknown.
	Time *float64
	// Highlight is id of the current element, empty when none.
	Highlight string
	// HighlightChanged is set on frames where Highlight differs from the
	// previous frame.
	HighlightChanged bool
	// ScrollTarget is set when auto scroll started on this frame.
	ScrollTarget *float64
	ScrollLeft   float64
	Playback     playback.Report
	Pages        [4]int // counts by common.PageState
}

// Frame is the per frame pass. It applies asynchronous results, asks for
// more pages, polls playback and updates highlighting and scrolling.
func (v *Viewer) Frame(now time.Time) FrameState {
	v.applyDocs()

	var st FrameState
	if v.meta != nil {
		v.pages.Frame()
	}

	st.Playback = v.player.Frame()
	if st.Playback.TimeSet {
		v.time = st.Playback.Time
	}
	st.Time = v.time

	elid, ok := v.index.CurrentEventID(v.time, &v.cursor)
	if !ok {
		elid = ""
	}
	if elid != v.highlight {
		v.highlight, st.HighlightChanged = elid, true
		if e, found := v.index.Elements[elid]; found {
			if target, scrolled := v.scroller.Update(e.Page, now); scrolled {
				st.ScrollTarget = &target
			}
		}
	}
	st.Highlight = v.highlight
	st.ScrollLeft = v.scroller.Step(now)

	st.Loaded, st.Errored = v.meta != nil, v.errored
	st.Pages = v.pages.Counts()
	return st
}

// Run drives frames at configured rate until fn returns false or context is
// done.
func (v *Viewer) Run(ctx context.Context, fn func(FrameState) bool) error {
	ticker := time.NewTicker(v.cfg.Playback.FrameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !fn(v.Frame(now)) {
				return nil
			}
		}
	}
}

// Err returns error which put viewer into errored state.
func (v *Viewer) Err() error {
	return v.err
}

// Session returns id of the current source session.
func (v *Viewer) Session() uuid.UUID {
	if s := v.sess.Load(); s != nil {
		return s.id
	}
	return uuid.Nil
}

// Meta returns loaded metadata or nil.
func (v *Viewer) Meta() *score.Meta {
	return v.meta
}

// Index returns current position index, never nil.
func (v *Viewer) Index() *score.Index {
	return v.index
}

// Page returns load state of the page.
func (v *Viewer) Page(page int) loader.Page {
	return v.pages.Page(page)
}

// PageStates returns states of all pages.
func (v *Viewer) PageStates() []common.PageState {
	return v.pages.States()
}

// Layout returns current page layout.
func (v *Viewer) Layout() view.Layout {
	return v.scroller.Layout()
}

// Close stops background work and releases current source.
func (v *Viewer) Close() error {
	v.cancel()
	v.pages.Close()
	v.wg.Wait()

	var err error
	if s := v.sess.Swap(nil); s != nil && s.fetcher != nil {
		err = multierr.Append(err, s.fetcher.Close())
	}
	return err
}
