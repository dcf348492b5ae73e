package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

// Opener returns raw content of the media source.
type Opener func(ctx context.Context, src string) ([]byte, error)

// Virtual is a headless media element. It fetches and probes the source to
// learn duration, then plays on a wall clock without producing any sound.
type Virtual struct {
	open Opener
	log  *zap.Logger
	ctx  context.Context
	now  func() time.Time

	mu       sync.Mutex
	src      string
	loading  int // load sequence, late loads of replaced source are ignored
	duration float64
	ready    bool
	paused   bool
	base     float64   // position at the moment of last play or seek
	started  time.Time // wall time of last play
	onReady  func(src string)
}

// NewVirtual creates paused media without source. ctx bounds background
// loads.
func NewVirtual(ctx context.Context, open Opener, log *zap.Logger) *Virtual {
	return &Virtual{
		open:     open,
		log:      log.Named("media"),
		ctx:      ctx,
		now:      time.Now,
		duration: math.NaN(),
		paused:   true,
	}
}

func (v *Virtual) OnReady(fn func(src string)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onReady = fn
}

func (v *Virtual) SetSrc(src string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.src = src
}

func (v *Virtual) Src() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.src
}

// Load resets media and fetches current source in background.
func (v *Virtual) Load() {
	v.mu.Lock()
	v.loading++
	seq, src := v.loading, v.src
	v.ready, v.paused = false, true
	v.duration, v.base = math.NaN(), 0
	v.mu.Unlock()

	if len(src) == 0 {
		return
	}
	go v.load(seq, src)
}

func (v *Virtual) load(seq int, src string) {
	data, err := v.open(v.ctx, src)
	if err == nil {
		var dur float64
		if dur, err = Probe(data); err == nil {
			v.mu.Lock()
			if seq != v.loading {
				v.mu.Unlock()
				return
			}
			v.duration, v.ready = dur, true
			notify := v.onReady
			v.mu.Unlock()

			v.log.Debug("Media ready", zap.String("src", src), zap.Float64("duration", dur))
			if notify != nil {
				notify(src)
			}
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	v.log.Warn("Unable to load media", zap.String("src", src), zap.Error(err))
}

func (v *Virtual) position() float64 {
	if v.paused {
		return v.base
	}
	t := v.base + v.now().Sub(v.started).Seconds()
	if t >= v.duration {
		t = v.duration
	}
	return t
}

// settle freezes playback when the end is reached.
func (v *Virtual) settle() {
	if !v.paused && v.position() >= v.duration {
		v.base, v.paused = v.duration, true
	}
}

func (v *Virtual) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.ready {
		return fmt.Errorf("media %q is not ready", v.src)
	}
	if !v.paused {
		return nil
	}
	if v.base >= v.duration {
		v.base = 0
	}
	v.started, v.paused = v.now(), false
	return nil
}

func (v *Virtual) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.paused {
		return
	}
	v.base, v.paused = v.position(), true
}

func (v *Virtual) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.settle()
	return v.position()
}

func (v *Virtual) SetCurrentTime(t float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !math.IsNaN(v.duration) {
		t = min(t, v.duration)
	}
	v.base, v.started = max(t, 0), v.now()
}

func (v *Virtual) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration
}

func (v *Virtual) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.settle()
	return v.paused
}

func (v *Virtual) Ended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.settle()
	return v.ready && v.paused && v.base >= v.duration
}

// Buffered reports the whole media once it is loaded.
func (v *Virtual) Buffered() []TimeRange {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.ready {
		return nil
	}
	return []TimeRange{{Start: 0, End: v.duration}}
}

// Kind returns detected type of the data, "unknown" when not recognized.
func Kind(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "unknown"
	}
	return kind.MIME.Value
}
