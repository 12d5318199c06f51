package sample

import (
	"math/rand"

	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/model"
	"github.com/jsphweid/biaxial/util"
)

// Create copies up to numFrames frames of seq starting at frameOffset.
func Create(seq model.Sequence, frameOffset, numFrames int) model.Sequence {
	res := make(model.Sequence, 0, numFrames)
	if frameOffset >= len(seq) {
		return res
	}
	end := util.Min(frameOffset+numFrames, len(seq))
	for _, frame := range seq[frameOffset:end] {
		res = append(res, model.CloneFrame(frame))
	}
	return res
}

// Random picks a sequence and a bar-aligned offset in it and returns the
// numFrames frames found there, so the inspiration starts on a downbeat.
func Random(seqs []model.Sequence, numFrames int, r *rand.Rand) model.Sequence {
	if len(seqs) == 0 || numFrames <= 0 {
		return model.Sequence{}
	}
	seq := seqs[r.Intn(len(seqs))]

	bars := (len(seq) - numFrames) / constants.NotesPerBar
	offset := 0
	if bars > 0 {
		offset = r.Intn(bars+1) * constants.NotesPerBar
	}
	return Create(seq, offset, numFrames)
}
