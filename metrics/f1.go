package metrics

import (
	"github.com/jsphweid/biaxial/util"
	"gonum.org/v1/gonum/stat"
)

// WeightedF1 scores multi-label predictions. Rows are samples and columns are
// labels; each label's F1 is weighted by its support (number of true rows).
// Labels without support weigh nothing, and no support at all scores 0.
func WeightedF1(y, p [][]float64) float64 {
	util.Assert(len(y) == len(p), "WeightedF1: %d truths for %d predictions", len(y), len(p))
	if len(y) == 0 {
		return 0
	}
	numLabels := len(y[0])

	var weighted, support float64
	for l := 0; l < numLabels; l++ {
		var tp, fp, fn float64
		for i := range y {
			util.Assert(len(y[i]) == numLabels && len(p[i]) == numLabels, "WeightedF1: ragged row %d", i)
			truth, pred := y[i][l] > 0.5, p[i][l] > 0.5
			switch {
			case truth && pred:
				tp++
			case pred:
				fp++
			case truth:
				fn++
			}
		}
		labelSupport := tp + fn
		if labelSupport == 0 {
			continue
		}
		support += labelSupport
		weighted += labelSupport * 2 * tp / (2*tp + fp + fn)
	}

	if support == 0 {
		return 0
	}
	return weighted / support
}

// MeanWeightedF1 averages WeightedF1 over every sample of a batch.
func MeanWeightedF1(y, p [][][]float64) float64 {
	util.Assert(len(y) == len(p), "MeanWeightedF1: %d truths for %d predictions", len(y), len(p))
	if len(y) == 0 {
		return 0
	}
	scores := make([]float64, len(y))
	for i := range y {
		scores[i] = WeightedF1(y[i], p[i])
	}
	return stat.Mean(scores, nil)
}
