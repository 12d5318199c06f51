package model

// Frame is a multi-hot vector over the modeled pitches for one time step.
type Frame = []float64

// Sequence is an ordered list of frames, i.e. one piece.
type Sequence = []Frame

// Batch holds BatchSize staggered windows, each laid out [batch][time][feature].
// Targets are the note windows shifted forward by one step.
type Batch struct {
	Notes    [][][]float64
	Beats    [][][]float64
	Progress [][][]float64
	Targets  [][][]float64
}

func (b Batch) Size() int {
	return len(b.Notes)
}

func (b Batch) TimeSteps() int {
	if len(b.Notes) == 0 {
		return 0
	}
	return len(b.Notes[0])
}

func ZeroFrame(numNotes int) Frame {
	return make(Frame, numNotes)
}

// CloneFrame copies f.
func CloneFrame(f Frame) Frame {
	res := make(Frame, len(f))
	copy(res, f)
	return res
}
