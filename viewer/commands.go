package viewer

import (
	"time"

	"go.uber.org/zap"

	"scorewd/score"
)

// Select seeks to the event of the element nearest to the current position.
// It returns false when element has no events or there is no media.
func (v *Viewer) Select(elid string) bool {
	times := v.index.EventTimesForElement(elid)
	pos := v.player.Position()
	if pos < 0 {
		return false
	}
	best, ok := score.BestTime(times, pos)
	if !ok {
		return false
	}
	v.log.Debug("Element selected", zap.String("elid", elid), zap.Float64s("times", times), zap.Float64("seek", best))
	v.player.SetPosition(best)
	return true
}

// Seek moves playback to absolute position in seconds.
func (v *Viewer) Seek(t float64) {
	v.player.SetPosition(t)
}

func (v *Viewer) PlayPause() {
	v.player.PlayPause()
}

func (v *Viewer) Stop() {
	v.player.Stop()
}

// Skip moves playback by configured step in given direction (sign of dir).
func (v *Viewer) Skip(dir int) {
	step := v.cfg.Playback.SkipStep.Seconds()
	switch {
	case dir < 0:
		v.player.AddProgress(-step)
	case dir > 0:
		v.player.AddProgress(step)
	}
}

// Position returns playback position, -1 without media.
func (v *Viewer) Position() float64 {
	return v.player.Position()
}

func (v *Viewer) ToggleAltTrack() {
	v.player.ToggleActiveTrack()
}

// ToggleAutoScroll switches auto scrolling. When it gets enabled the page of
// the highlighted element is brought into view right away.
func (v *Viewer) ToggleAutoScroll() bool {
	enabled := v.scroller.Toggle()
	if !enabled {
		return false
	}
	if e, ok := v.index.Elements[v.highlight]; ok {
		v.scroller.Update(e.Page, time.Now())
	}
	return true
}

func (v *Viewer) ToggleZoom() bool {
	return v.scroller.ToggleZoom()
}
