package dataset

import "math"

// ComputeBeat places step on a clock face of notesPerBar positions and
// returns its (cos, sin) coordinates.
func ComputeBeat(step, notesPerBar int) []float64 {
	angle := float64(step%notesPerBar) / float64(notesPerBar) * 2 * math.Pi
	return []float64{math.Cos(angle), math.Sin(angle)}
}

// ComputeCompletion is how far through a piece of length steps step is.
func ComputeCompletion(step, length int) []float64 {
	if length <= 0 {
		return []float64{0}
	}
	return []float64{float64(step) / float64(length)}
}
