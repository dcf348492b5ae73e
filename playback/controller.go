package playback

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"scorewd/common"
)

type track struct {
	src    string
	loaded bool
	media  Media
}

// Report is what controller tells host on every frame.
type Report struct {
	// TimeSet is true when Time carries position update, nil Time means no
	// position (no media or stopped).
	TimeSet bool
	Time    *float64

	Loaded        bool
	Playing       bool
	ProgressRatio float64
	LoadedRatio   float64
	Active        common.Track
}

// Controller is the dual track audio controller. It has two states, main or
// alternate track active, alternate is reachable only when alternate source
// is set. Not safe for concurrent use except for Ready.
type Controller struct {
	log    *zap.Logger
	tracks [2]track
	active common.Track
	// latest source reported ready per track, consumed by Frame
	ready [2]atomic.Pointer[string]

	// pending discrete position report (seek, stop)
	pending    *float64
	hasPending bool

	playing       bool
	progressRatio float64
	loadedRatio   float64
}

// NewController creates controller over two media handles, any of them may be
// nil when unavailable.
func NewController(main, alt Media, log *zap.Logger) *Controller {
	c := &Controller{log: log.Named("playback")}
	c.tracks[common.TrackMain].media = main
	c.tracks[common.TrackAlt].media = alt
	for _, t := range []common.Track{common.TrackMain, common.TrackAlt} {
		if n, ok := c.tracks[t].media.(ReadyNotifier); ok {
			n.OnReady(func(src string) { c.Ready(t, src) })
		}
	}
	return c
}

// Ready records readiness of the source on the track. It is safe to call from
// any goroutine, only the latest source per track is kept and it is applied on
// the next Frame if track source did not change in the meantime.
func (c *Controller) Ready(t common.Track, src string) {
	c.ready[t].Store(&src)
}

// MarkReady sets track loaded flag.
func (c *Controller) MarkReady(t common.Track) {
	c.tracks[t].loaded = true
	c.log.Debug("Track ready", zap.Stringer("track", t), zap.String("src", c.tracks[t].src))
}

// SetSources (re)loads track media whose source changed. Empty alt disables
// alternate track.
func (c *Controller) SetSources(main, alt string) {
	c.setSource(common.TrackMain, main)
	if len(alt) > 0 {
		c.setSource(common.TrackAlt, alt)
		return
	}
	tr := &c.tracks[common.TrackAlt]
	tr.src = ""
	tr.loaded = false
	if c.active == common.TrackAlt {
		// alternate is gone, fall back to main keeping state
		if tr.media != nil && !tr.media.Paused() {
			tr.media.Pause()
		}
		c.active = common.TrackMain
	}
}

func (c *Controller) setSource(t common.Track, src string) {
	tr := &c.tracks[t]
	if tr.src == src || tr.media == nil {
		return
	}
	tr.src = src
	tr.loaded = false
	tr.media.SetSrc(src)
	tr.media.Load()
	c.log.Debug("Track source set", zap.Stringer("track", t), zap.String("src", src))
}

// HasAlt reports whether alternate track is configured.
func (c *Controller) HasAlt() bool {
	return len(c.tracks[common.TrackAlt].src) > 0
}

// Active returns currently active track.
func (c *Controller) Active() common.Track {
	return c.active
}

// Loaded reports whether active track is ready to play.
func (c *Controller) Loaded() bool {
	return c.tracks[c.active].loaded
}

func (c *Controller) media() Media {
	return c.tracks[c.active].media
}

// ToggleActiveTrack swaps main and alternate tracks preserving position and
// playing state. No-op without alternate source or media handles.
func (c *Controller) ToggleActiveTrack() {
	if !c.HasAlt() {
		return
	}
	cur, other := c.tracks[c.active].media, c.tracks[c.active.Other()].media
	if cur == nil || other == nil {
		return
	}

	other.SetCurrentTime(cur.CurrentTime())
	if !cur.Paused() {
		cur.Pause()
		if err := other.Play(); err != nil {
			c.log.Warn("Unable to start playback", zap.Stringer("track", c.active.Other()), zap.Error(err))
		}
	}
	c.active = c.active.Other()
	c.log.Debug("Active track switched", zap.Stringer("track", c.active), zap.Float64("position", other.CurrentTime()))
}

// SetPosition seeks active track, time is clamped to [0, duration].
func (c *Controller) SetPosition(t float64) {
	m := c.media()
	if m == nil {
		return
	}
	if d := m.Duration(); !math.IsNaN(d) && t > d {
		t = d
	}
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	m.SetCurrentTime(t)
	c.pending, c.hasPending = &t, true
}

// Position returns active track position or -1 when there is no media.
func (c *Controller) Position() float64 {
	m := c.media()
	if m == nil {
		return -1
	}
	return m.CurrentTime()
}

// AddProgress moves position by delta seconds.
func (c *Controller) AddProgress(delta float64) {
	m := c.media()
	if m == nil {
		return
	}
	c.SetPosition(m.CurrentTime() + delta)
}

// PlayPause toggles playback, only when active track is present and loaded.
func (c *Controller) PlayPause() {
	m := c.media()
	if m == nil || !c.tracks[c.active].loaded {
		return
	}
	if m.Paused() {
		if err := m.Play(); err != nil {
			c.log.Warn("Unable to start playback", zap.Stringer("track", c.active), zap.Error(err))
		}
		return
	}
	m.Pause()
}

// Stop pauses and rewinds active track, position is reported as absent.
func (c *Controller) Stop() {
	m := c.media()
	if m == nil {
		return
	}
	m.Pause()
	m.SetCurrentTime(0)
	c.pending, c.hasPending = nil, true
}

// Frame is called once per host frame. It applies readiness signals, reports
// position while playing and refreshes progress of the loaded active track.
func (c *Controller) Frame() Report {
	c.drainReady()

	rep := Report{Active: c.active}
	m := c.media()
	switch {
	case m == nil:
		rep.TimeSet = true
	case !m.Paused():
		t := m.CurrentTime()
		rep.TimeSet, rep.Time = true, &t
	case c.hasPending:
		rep.TimeSet, rep.Time = true, c.pending
	}
	c.pending, c.hasPending = nil, false

	if m != nil && c.tracks[c.active].loaded {
		c.refresh(m)
	}
	rep.Loaded = m != nil && c.tracks[c.active].loaded
	rep.Playing = c.playing
	rep.ProgressRatio = c.progressRatio
	rep.LoadedRatio = c.loadedRatio
	return rep
}

func (c *Controller) refresh(m Media) {
	c.playing = !m.Paused()

	cur, dur := m.CurrentTime(), m.Duration()
	if r := cur / dur; !math.IsNaN(r) && !math.IsInf(r, 0) {
		c.progressRatio = r
	}
	// keep previous value when current time is outside of buffered ranges
	for _, br := range m.Buffered() {
		if br.Start <= cur && br.End >= cur {
			if r := br.End / dur; !math.IsNaN(r) && !math.IsInf(r, 0) {
				c.loadedRatio = r
			}
			break
		}
	}
}

func (c *Controller) drainReady() {
	for _, t := range []common.Track{common.TrackMain, common.TrackAlt} {
		src := c.ready[t].Swap(nil)
		if src == nil {
			continue
		}
		if *src != c.tracks[t].src {
			c.log.Debug("Stale readiness ignored", zap.Stringer("track", t), zap.String("src", *src))
			continue
		}
		c.MarkReady(t)
	}
}
