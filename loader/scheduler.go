// Package loader keeps page graphics populated without saturating the
// network: pages are fetched lazily in index order with a cap on requests in
// flight, failed pages are retried after a cooldown.
package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"scorewd/common"
	"scorewd/config"
)

// Generation identifies the score source the scheduler works for. It changes
// on every Reset, results of requests issued for an older generation are
// dropped.
type Generation uint64

// FetchFunc fetches content of a single zero based page.
type FetchFunc func(ctx context.Context, page int) ([]byte, error)

// Page is the load state of a single page graphic.
type Page struct {
	State   common.PageState
	Content []byte
	Err     error

	attempt int
	retry   *time.Timer
}

type completion struct {
	gen     Generation
	page    int
	attempt int
	content []byte
	err     error
	// cooldown marks retry timer expiration rather than fetch result
	cooldown bool
}

// Scheduler is driven from a single goroutine (the frame loop): Reset,
// RequestLoad, Schedule and Pump must not be called concurrently. Fetches
// run on their own goroutines and report back through a channel which is
// drained by Pump.
type Scheduler struct {
	limit    int
	cooldown time.Duration
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	gen     atomic.Uint64
	fetch   FetchFunc
	pages   []Page
	results chan completion
}

// New creates scheduler with no pages. Context bounds lifetime of all
// fetches, Close cancels it.
func New(ctx context.Context, cfg *config.LoaderConfig, log *zap.Logger) *Scheduler {
	limit := cfg.MaxInFlight
	if limit <= 0 {
		limit = 3
	}
	cooldown := cfg.RetryCooldown
	if cooldown <= 0 {
		cooldown = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		limit:    limit,
		cooldown: cooldown,
		log:      log.Named("loader"),
		ctx:      ctx,
		cancel:   cancel,
		results:  make(chan completion, 2*limit),
	}
}

// Generation returns current generation, safe to call from any goroutine.
func (s *Scheduler) Generation() Generation {
	return Generation(s.gen.Load())
}

// Reset starts new generation with all pages unloaded. Requests still in
// flight finish on their own and are ignored.
func (s *Scheduler) Reset(pages int, fetch FetchFunc) Generation {
	s.stopTimers()
	gen := Generation(s.gen.Add(1))
	s.fetch = fetch
	s.pages = make([]Page, max(pages, 0))
	s.log.Debug("Pages reset", zap.Uint64("generation", uint64(gen)), zap.Int("pages", len(s.pages)))
	return gen
}

// Len returns number of pages in current generation.
func (s *Scheduler) Len() int {
	return len(s.pages)
}

// Page returns state of the page, zero Page for out of range index.
func (s *Scheduler) Page(page int) Page {
	if page < 0 || page >= len(s.pages) {
		return Page{}
	}
	return s.pages[page]
}

// States returns snapshot of all page states.
func (s *Scheduler) States() []common.PageState {
	states := make([]common.PageState, len(s.pages))
	for i := range s.pages {
		states[i] = s.pages[i].State
	}
	return states
}

// Counts returns number of pages in every state indexed by state.
func (s *Scheduler) Counts() [4]int {
	var counts [4]int
	for i := range s.pages {
		counts[s.pages[i].State]++
	}
	return counts
}

// RequestLoad starts fetching the page unless it is already loading or
// loaded. Explicit request does not wait for the cooldown of a failed page.
func (s *Scheduler) RequestLoad(page int) {
	if page < 0 || page >= len(s.pages) || s.fetch == nil {
		return
	}
	p := &s.pages[page]
	if p.State == common.PageStateLoading || p.State == common.PageStateLoaded {
		return
	}
	if p.retry != nil {
		p.retry.Stop()
		p.retry = nil
	}
	p.State = common.PageStateLoading
	p.Err = nil
	p.attempt++

	gen, attempt, fetch := s.Generation(), p.attempt, s.fetch
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		content, err := fetch(s.ctx, page)
		s.deliver(completion{gen: gen, page: page, attempt: attempt, content: content, err: err})
	}()
}

func (s *Scheduler) deliver(c completion) {
	select {
	case s.results <- c:
	case <-s.ctx.Done():
	}
}

// Plan returns pages to request given current states: pages are scanned in
// ascending order and unloaded ones are picked while number of loading pages
// stays below limit.
func Plan(states []common.PageState, limit int) []int {
	inFlight := 0
	for _, st := range states {
		if st == common.PageStateLoading {
			inFlight++
		}
	}
	var res []int
	for i, st := range states {
		if inFlight >= limit {
			break
		}
		if st == common.PageStateUnloaded {
			res = append(res, i)
			inFlight++
		}
	}
	return res
}

// Schedule requests pages according to Plan and returns them.
func (s *Scheduler) Schedule() []int {
	planned := Plan(s.States(), s.limit)
	for _, page := range planned {
		s.RequestLoad(page)
	}
	return planned
}

// Pump applies all completions delivered so far and returns how many of them
// changed page state. It never blocks.
func (s *Scheduler) Pump() int {
	applied := 0
	for {
		select {
		case c := <-s.results:
			if s.apply(c) {
				applied++
			}
		default:
			return applied
		}
	}
}

// Frame is the per frame pass: apply completions, then request more pages.
func (s *Scheduler) Frame() {
	s.Pump()
	s.Schedule()
}

func (s *Scheduler) apply(c completion) bool {
	if c.gen != s.Generation() || c.page >= len(s.pages) {
		s.log.Debug("Stale completion dropped", zap.Int("page", c.page), zap.Uint64("generation", uint64(c.gen)))
		return false
	}
	p := &s.pages[c.page]
	if c.attempt != p.attempt {
		return false
	}

	if c.cooldown {
		if p.State != common.PageStateFailed {
			return false
		}
		p.State = common.PageStateUnloaded
		p.retry = nil
		return true
	}

	if p.State != common.PageStateLoading {
		return false
	}
	if c.err != nil {
		s.log.Warn("Page load failed, will retry", zap.Int("page", c.page+1), zap.Duration("cooldown", s.cooldown), zap.Error(c.err))
		p.State = common.PageStateFailed
		p.Err = c.err
		gen, page, attempt := c.gen, c.page, c.attempt
		p.retry = time.AfterFunc(s.cooldown, func() {
			s.deliver(completion{gen: gen, page: page, attempt: attempt, cooldown: true})
		})
		return true
	}
	p.State = common.PageStateLoaded
	p.Content = c.content
	s.log.Debug("Page loaded", zap.Int("page", c.page+1), zap.Int("size", len(c.content)))
	return true
}

func (s *Scheduler) stopTimers() {
	for i := range s.pages {
		if t := s.pages[i].retry; t != nil {
			t.Stop()
		}
	}
}

// Close cancels outstanding fetches and waits for their goroutines.
func (s *Scheduler) Close() {
	s.stopTimers()
	s.cancel()
	s.wg.Wait()
}
