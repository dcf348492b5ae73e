package score

import "math"

// BestTime picks timestamp closest to the current playback position. Element
// which is played several times is selected by the repeat nearest to where
// the listener is now.
func BestTime(times []float64, current float64) (float64, bool) {
	if len(times) == 0 {
		return 0, false
	}
	best, bestDiff := times[0], math.Inf(1)
	for _, t := range times {
		if d := math.Abs(t - current); d < bestDiff {
			best, bestDiff = t, d
		}
	}
	return best, true
}
