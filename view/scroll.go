package view

import (
	"math"
	"time"

	"go.uber.org/zap"

	"scorewd/config"
	"scorewd/score"
)

// Viewport is the visible window over layout content.
type Viewport struct {
	ScrollLeft, Width float64
}

// Visible reports whether page is sufficiently visible: page narrower than
// viewport must be completely inside, wider page needs only to overlap.
func Visible(p PageBox, vp Viewport) bool {
	left := p.Left - vp.ScrollLeft
	right := p.Right() - vp.ScrollLeft
	if p.Width <= vp.Width {
		return left >= 0 && right <= vp.Width
	}
	return left <= vp.Width && right >= 0
}

// Target returns scroll position bringing the page into view: either page
// with padding on the left or page centered, whichever is further.
func Target(p PageBox, vp Viewport) float64 {
	return math.Max(p.Left-p.Width*0.2, p.Left+p.Width/2-vp.Width/2)
}

// SmoothScroll animates scroll position with ease-in-out curve.
type SmoothScroll struct {
	from, to float64
	start    time.Time
	duration time.Duration
	active   bool
}

// Start begins animation from current to target position.
func (s *SmoothScroll) Start(from, to float64, now time.Time, d time.Duration) {
	*s = SmoothScroll{from: from, to: to, start: now, duration: d, active: true}
}

// Active reports whether animation is running.
func (s *SmoothScroll) Active() bool {
	return s.active
}

// Stop cancels animation leaving position where it is.
func (s *SmoothScroll) Stop() {
	s.active = false
}

// Step returns position for the moment and whether animation is finished.
func (s *SmoothScroll) Step(now time.Time) (float64, bool) {
	if !s.active {
		return s.to, true
	}
	if s.duration <= 0 {
		s.active = false
		return s.to, true
	}
	p := float64(now.Sub(s.start)) / float64(s.duration)
	if p >= 1 {
		s.active = false
		return s.to, true
	}
	p = max(p, 0)
	return s.from + (s.to-s.from)*easeInOut(p), false
}

func easeInOut(p float64) float64 {
	if p < 0.5 {
		return 4 * p * p * p
	}
	q := -2*p + 2
	return 1 - q*q*q/2
}

// AutoScroller keeps the page with highlighted element in view. It must be
// used from the frame goroutine.
//
// Manual scrolling is not reconciled with automatic one: ScrollTo cancels
// running animation but the next highlighted page change scrolls again.
type AutoScroller struct {
	log      *zap.Logger
	enabled  bool
	zoomed   bool
	width    float64
	winH     float64
	duration time.Duration

	pages  int
	format score.PageFormat
	layout Layout

	scroll float64
	anim   SmoothScroll
}

func NewAutoScroller(cfg *config.ViewConfig, log *zap.Logger) *AutoScroller {
	return &AutoScroller{
		log:      log.Named("view"),
		enabled:  cfg.AutoScroll,
		zoomed:   cfg.Zoomed,
		width:    cfg.ViewportWidth,
		winH:     cfg.WindowHeight,
		duration: cfg.ScrollDuration,
	}
}

// SetPages lays out pages of a newly loaded score and scrolls back to the
// beginning.
func (a *AutoScroller) SetPages(pages int, format score.PageFormat) {
	a.pages, a.format = pages, format
	a.relayout()
	a.anim.Stop()
	a.scroll = 0
}

func (a *AutoScroller) relayout() {
	a.layout = NewLayout(a.pages, a.format, a.width, a.winH, a.zoomed)
	a.scroll = a.clamp(a.scroll)
}

func (a *AutoScroller) clamp(x float64) float64 {
	return math.Max(0, math.Min(x, a.layout.ContentWidth()-a.width))
}

// Toggle switches automatic scrolling and returns new state.
func (a *AutoScroller) Toggle() bool {
	a.enabled = !a.enabled
	if !a.enabled {
		a.anim.Stop()
	}
	return a.enabled
}

func (a *AutoScroller) Enabled() bool {
	return a.enabled
}

// ToggleZoom switches zoomed layout and returns new state. Scroll position is
// kept proportional to content width.
func (a *AutoScroller) ToggleZoom() bool {
	ratio := 0.0
	if cw := a.layout.ContentWidth(); cw > 0 {
		ratio = a.scroll / cw
	}
	a.zoomed = !a.zoomed
	a.anim.Stop()
	a.layout = NewLayout(a.pages, a.format, a.width, a.winH, a.zoomed)
	a.scroll = a.clamp(ratio * a.layout.ContentWidth())
	return a.zoomed
}

func (a *AutoScroller) Zoomed() bool {
	return a.zoomed
}

// Resize changes viewport and window sizes.
func (a *AutoScroller) Resize(width, windowHeight float64) {
	a.width, a.winH = width, windowHeight
	a.relayout()
}

func (a *AutoScroller) Layout() Layout {
	return a.layout
}

func (a *AutoScroller) Viewport() Viewport {
	return Viewport{ScrollLeft: a.scroll, Width: a.width}
}

// ScrollTo is manual scroll, it cancels running animation.
func (a *AutoScroller) ScrollTo(x float64) {
	a.anim.Stop()
	a.scroll = a.clamp(x)
}

// Update is called when highlighted element changes. When enabled and the
// page is not sufficiently visible smooth scroll to target is started, the
// target is returned.
func (a *AutoScroller) Update(page int, now time.Time) (float64, bool) {
	if !a.enabled {
		return 0, false
	}
	box, ok := a.layout.Page(page)
	if !ok {
		return 0, false
	}
	vp := a.Viewport()
	if Visible(box, vp) {
		return 0, false
	}
	target := a.clamp(Target(box, vp))
	a.anim.Start(a.scroll, target, now, a.duration)
	a.log.Debug("Scrolling to page", zap.Int("page", page+1), zap.Float64("from", a.scroll), zap.Float64("to", target))
	return target, true
}

// Step advances running animation and returns current scroll position.
func (a *AutoScroller) Step(now time.Time) float64 {
	if a.anim.Active() {
		a.scroll, _ = a.anim.Step(now)
	}
	return a.scroll
}
