// Package playback owns the audio side of the viewer: two media handles
// (main and alternate track) kept time aligned so either can become active
// without audible jump.
package playback

// TimeRange is a buffered span of media in seconds.
type TimeRange struct {
	Start, End float64
}

// Media is the audio element contract the controller drives. Methods are
// called from the frame goroutine only.
type Media interface {
	SetSrc(src string)
	Src() string
	// Load starts (re)loading current source, readiness is signalled
	// asynchronously.
	Load()
	Play() error
	Pause()
	CurrentTime() float64
	SetCurrentTime(t float64)
	// Duration is NaN until known.
	Duration() float64
	Paused() bool
	Ended() bool
	Buffered() []TimeRange
}

// ReadyNotifier is implemented by media which can tell when loaded source is
// ready to play. Callback may be invoked from any goroutine.
type ReadyNotifier interface {
	OnReady(fn func(src string))
}
