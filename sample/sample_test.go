package sample

import (
	"math/rand"
	"testing"

	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/model"
	"github.com/stretchr/testify/assert"
)

func countingSequence(n int) model.Sequence {
	seq := make(model.Sequence, n)
	for i := range seq {
		seq[i] = model.Frame{float64(i)}
	}
	return seq
}

func TestCreate(t *testing.T) {
	seq := countingSequence(10)

	assert := assert.New(t)
	assert.Equal(model.Sequence{{3}, {4}}, Create(seq, 3, 2))
	assert.Equal(model.Sequence{{8}, {9}}, Create(seq, 8, 5))
	assert.Equal(model.Sequence{}, Create(seq, 12, 2))
}

func TestCreateCopiesFrames(t *testing.T) {
	seq := countingSequence(2)
	res := Create(seq, 0, 1)
	res[0][0] = 42
	assert.Equal(t, 0.0, seq[0][0])
}

func TestRandomIsBarAligned(t *testing.T) {
	seqs := []model.Sequence{countingSequence(5 * constants.NotesPerBar)}
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 20; i++ {
		res := Random(seqs, constants.NotesPerBar, r)
		if assert.Len(t, res, constants.NotesPerBar) {
			assert.Zero(t, int(res[0][0])%constants.NotesPerBar)
		}
	}
}

func TestRandomShortSequence(t *testing.T) {
	seqs := []model.Sequence{countingSequence(3)}
	res := Random(seqs, constants.NotesPerBar, rand.New(rand.NewSource(1)))
	assert.Len(t, res, 3)
	assert.Empty(t, Random(nil, 4, rand.New(rand.NewSource(1))))
}
