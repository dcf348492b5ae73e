package playback

import (
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"scorewd/common"
)

type fakeMedia struct {
	src      string
	loads    int
	time     float64
	duration float64
	paused   bool
	buffered []TimeRange
	plays    int
}

func newFakeMedia(duration float64) *fakeMedia {
	return &fakeMedia{duration: duration, paused: true}
}

func (m *fakeMedia) SetSrc(src string)        { m.src = src }
func (m *fakeMedia) Src() string              { return m.src }
func (m *fakeMedia) Load()                    { m.loads++; m.time = 0; m.paused = true }
func (m *fakeMedia) Play() error              { m.paused = false; m.plays++; return nil }
func (m *fakeMedia) Pause()                   { m.paused = true }
func (m *fakeMedia) CurrentTime() float64     { return m.time }
func (m *fakeMedia) SetCurrentTime(t float64) { m.time = t }
func (m *fakeMedia) Duration() float64        { return m.duration }
func (m *fakeMedia) Paused() bool             { return m.paused }
func (m *fakeMedia) Ended() bool              { return m.paused && m.time >= m.duration }
func (m *fakeMedia) Buffered() []TimeRange    { return m.buffered }

func newDual(t *testing.T) (*Controller, *fakeMedia, *fakeMedia) {
	t.Helper()
	main, alt := newFakeMedia(100), newFakeMedia(100)
	c := NewController(main, alt, zaptest.NewLogger(t))
	c.SetSources("main.ogg", "alt.ogg")
	c.MarkReady(common.TrackMain)
	c.MarkReady(common.TrackAlt)
	return c, main, alt
}

func TestSetSources(t *testing.T) {
	main, alt := newFakeMedia(10), newFakeMedia(10)
	c := NewController(main, alt, zaptest.NewLogger(t))

	c.SetSources("a.ogg", "")
	if main.loads != 1 || main.src != "a.ogg" {
		t.Errorf("main loads = %d src = %q", main.loads, main.src)
	}
	if alt.loads != 0 || c.HasAlt() {
		t.Error("alt must not be loaded without source")
	}

	c.MarkReady(common.TrackMain)
	c.SetSources("a.ogg", "b.ogg")
	if main.loads != 1 {
		t.Errorf("unchanged source reloaded, loads = %d", main.loads)
	}
	if !c.Loaded() {
		t.Error("unchanged source must stay loaded")
	}
	if alt.loads != 1 || !c.HasAlt() {
		t.Errorf("alt loads = %d", alt.loads)
	}

	c.SetSources("c.ogg", "b.ogg")
	if main.loads != 2 || c.Loaded() {
		t.Errorf("changed source: loads = %d loaded = %v", main.loads, c.Loaded())
	}
}

func TestToggleActiveTrack(t *testing.T) {
	t.Run("playing", func(t *testing.T) {
		c, main, alt := newDual(t)
		c.PlayPause()
		main.time = 42.5

		c.ToggleActiveTrack()

		if c.Active() != common.TrackAlt {
			t.Fatalf("active = %v, want alt", c.Active())
		}
		if alt.time != 42.5 {
			t.Errorf("alt position = %v, want 42.5", alt.time)
		}
		if !main.paused || alt.paused {
			t.Errorf("exactly one track must play: main paused %v, alt paused %v", main.paused, alt.paused)
		}
		if c.Position() != 42.5 {
			t.Errorf("Position() = %v", c.Position())
		}

		alt.time = 50
		c.ToggleActiveTrack()
		if c.Active() != common.TrackMain || main.time != 50 || main.paused || !alt.paused {
			t.Errorf("toggle back: active %v main time %v main paused %v alt paused %v",
				c.Active(), main.time, main.paused, alt.paused)
		}
	})

	t.Run("paused", func(t *testing.T) {
		c, main, alt := newDual(t)
		main.time = 7
		c.ToggleActiveTrack()
		if alt.time != 7 || !alt.paused || !main.paused {
			t.Errorf("alt time %v, alt paused %v, main paused %v", alt.time, alt.paused, main.paused)
		}
		if alt.plays != 0 {
			t.Error("paused toggle must not start playback")
		}
	})

	t.Run("no alt source", func(t *testing.T) {
		main, alt := newFakeMedia(10), newFakeMedia(10)
		c := NewController(main, alt, zaptest.NewLogger(t))
		c.SetSources("a.ogg", "")
		c.ToggleActiveTrack()
		if c.Active() != common.TrackMain {
			t.Error("toggle without alt source must be no-op")
		}
	})

	t.Run("no alt handle", func(t *testing.T) {
		c := NewController(newFakeMedia(10), nil, zaptest.NewLogger(t))
		c.SetSources("a.ogg", "b.ogg")
		c.ToggleActiveTrack()
		if c.Active() != common.TrackMain {
			t.Error("toggle without alt handle must be no-op")
		}
	})

	t.Run("alt removed while active", func(t *testing.T) {
		c, _, alt := newDual(t)
		c.ToggleActiveTrack()
		c.PlayPause()
		c.SetSources("main.ogg", "")
		if c.Active() != common.TrackMain || !alt.paused {
			t.Errorf("active = %v, alt paused = %v", c.Active(), alt.paused)
		}
	})
}

func TestSetPosition(t *testing.T) {
	c, main, _ := newDual(t)

	tests := []struct {
		in, want float64
	}{
		{10, 10},
		{-3, 0},
		{250, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		c.SetPosition(tt.in)
		if main.time != tt.want {
			t.Errorf("SetPosition(%v) -> %v, want %v", tt.in, main.time, tt.want)
		}
	}

	main.time = 99
	c.AddProgress(2)
	if main.time != 100 {
		t.Errorf("AddProgress past end -> %v", main.time)
	}
	c.AddProgress(-2)
	if main.time != 98 {
		t.Errorf("AddProgress(-2) -> %v", main.time)
	}
}

func TestNoMedia(t *testing.T) {
	c := NewController(nil, nil, zaptest.NewLogger(t))
	c.SetSources("a.ogg", "b.ogg")

	if c.Position() != -1 {
		t.Errorf("Position() = %v, want -1", c.Position())
	}
	c.SetPosition(5)
	c.PlayPause()
	c.Stop()
	c.AddProgress(1)

	rep := c.Frame()
	if !rep.TimeSet || rep.Time != nil {
		t.Errorf("Frame() without media must report nil time, got %+v", rep)
	}
	if rep.Loaded || rep.Playing {
		t.Errorf("Frame() = %+v", rep)
	}
}

func TestPlayPauseRequiresLoaded(t *testing.T) {
	main := newFakeMedia(10)
	c := NewController(main, nil, zaptest.NewLogger(t))
	c.SetSources("a.ogg", "")

	c.PlayPause()
	if !main.paused {
		t.Error("must not play before ready")
	}

	c.Ready(common.TrackMain, "stale.ogg")
	c.Frame()
	if c.Loaded() {
		t.Error("readiness of a different source must be ignored")
	}

	c.Ready(common.TrackMain, "a.ogg")
	c.Frame()
	if !c.Loaded() {
		t.Fatal("track must be loaded after readiness")
	}
	c.PlayPause()
	if main.paused {
		t.Error("PlayPause() must start playback")
	}
	c.PlayPause()
	if !main.paused {
		t.Error("second PlayPause() must pause")
	}
}

func TestFrameReporting(t *testing.T) {
	c, main, _ := newDual(t)
	main.buffered = []TimeRange{{0, 20}, {40, 60}}

	// paused without seeks reports nothing
	if rep := c.Frame(); rep.TimeSet {
		t.Errorf("paused Frame() reported time %+v", rep)
	}

	c.SetPosition(10)
	rep := c.Frame()
	if !rep.TimeSet || rep.Time == nil || *rep.Time != 10 {
		t.Errorf("seek not reported: %+v", rep)
	}
	if rep.ProgressRatio != 0.1 || rep.LoadedRatio != 0.2 {
		t.Errorf("ratios = %v, %v", rep.ProgressRatio, rep.LoadedRatio)
	}
	if rep := c.Frame(); rep.TimeSet {
		t.Error("seek must be reported once")
	}

	c.PlayPause()
	for _, tm := range []float64{30, 50} {
		main.time = tm
		rep = c.Frame()
		if !rep.TimeSet || rep.Time == nil || *rep.Time != tm || !rep.Playing {
			t.Fatalf("playing frame at %v = %+v", tm, rep)
		}
	}
	if rep.LoadedRatio != 0.6 {
		t.Errorf("LoadedRatio = %v, want 0.6", rep.LoadedRatio)
	}

	// outside of buffered ranges previous ratio stays
	main.time = 80
	rep = c.Frame()
	if rep.LoadedRatio != 0.6 {
		t.Errorf("LoadedRatio = %v, want unchanged 0.6", rep.LoadedRatio)
	}
	if rep.ProgressRatio != 0.8 {
		t.Errorf("ProgressRatio = %v", rep.ProgressRatio)
	}

	c.Stop()
	rep = c.Frame()
	if !rep.TimeSet || rep.Time != nil {
		t.Errorf("Stop() must report nil time, got %+v", rep)
	}
	if main.time != 0 || !main.paused {
		t.Errorf("Stop() left time %v paused %v", main.time, main.paused)
	}
}

func TestFrameIgnoresUnknownDuration(t *testing.T) {
	c, main, _ := newDual(t)
	main.duration = math.NaN()
	main.time = 5
	rep := c.Frame()
	if rep.ProgressRatio != 0 || rep.LoadedRatio != 0 {
		t.Errorf("NaN ratios must be ignored, got %+v", rep)
	}
}

func TestReadyBurstBeforeFrame(t *testing.T) {
	main, alt := newFakeMedia(10), newFakeMedia(10)
	c := NewController(main, alt, zaptest.NewLogger(t))
	c.SetSources("a.ogg", "a-alt.ogg")

	// many sources reported between two frames, the last one of each track counts
	for range 20 {
		c.Ready(common.TrackAlt, "stale-alt.ogg")
		c.Ready(common.TrackMain, "stale.ogg")
	}
	c.Ready(common.TrackAlt, "a-alt.ogg")
	c.Ready(common.TrackMain, "a.ogg")

	if rep := c.Frame(); !rep.Loaded {
		t.Fatal("main track must be loaded after burst of readiness signals")
	}
	c.ToggleActiveTrack()
	if !c.Loaded() {
		t.Error("alternate track must be loaded after burst of readiness signals")
	}

	// consumed signal is not applied again after source change
	c.SetSources("b.ogg", "")
	c.Frame()
	if c.Loaded() {
		t.Error("new source must wait for its own readiness")
	}
}
