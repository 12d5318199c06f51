package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/midi"
	"github.com/jsphweid/biaxial/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedSequence(n int) model.Sequence {
	seq := make(model.Sequence, n)
	for i := range seq {
		seq[i] = model.ZeroFrame(constants.NumNotes)
		seq[i][i%constants.NumNotes] = 1
	}
	return seq
}

func TestComputeBeat(t *testing.T) {
	assert := assert.New(t)
	assert.InDeltaSlice([]float64{1, 0}, ComputeBeat(0, 16), 1e-12)
	assert.InDeltaSlice([]float64{0, 1}, ComputeBeat(4, 16), 1e-12)
	assert.InDeltaSlice([]float64{-1, 0}, ComputeBeat(8, 16), 1e-12)
	assert.InDeltaSlice(ComputeBeat(3, 16), ComputeBeat(19, 16), 1e-12)

	beat := ComputeBeat(5, 16)
	assert.InDelta(1, math.Hypot(beat[0], beat[1]), 1e-12)
}

func TestComputeCompletion(t *testing.T) {
	assert.Equal(t, []float64{0}, ComputeCompletion(0, 10))
	assert.Equal(t, []float64{0.5}, ComputeCompletion(5, 10))
	assert.Equal(t, []float64{0}, ComputeCompletion(3, 0))
}

func TestWindowsAlignFeaturesWithPredictedStep(t *testing.T) {
	seq := numberedSequence(20)
	notes, beats, progress, targets := Windows(seq, 4)

	assert := assert.New(t)
	assert.Len(notes, 16)
	assert.Len(beats, 16)
	assert.Len(progress, 16)
	assert.Len(targets, 16)

	// window 2 predicts steps 2..5 from inputs 1..4
	assert.Equal(seq[1], notes[2][0])
	assert.Equal(seq[2], targets[2][0])
	assert.Equal(ComputeBeat(2, constants.NotesPerBar), beats[2][0])
	assert.Equal(ComputeCompletion(5, 20), progress[2][3])
}

func TestProcess(t *testing.T) {
	// 3 and 16 windows: one sequence has no full batch
	seqs := []model.Sequence{numberedSequence(7), numberedSequence(20)}
	batches := Process(seqs, 5, 4)

	require.Len(t, batches, 1)
	require.Len(t, batches[0], 3)

	assert := assert.New(t)
	for _, b := range batches[0] {
		assert.Equal(5, b.Size())
		assert.Equal(4, b.TimeSteps())
		assert.Len(b.Beats[0][0], constants.BeatDim)
		assert.Len(b.Progress[0][0], constants.ProgressDim)
		for w := range b.Notes {
			assert.Equal(b.Notes[w][1:], b.Targets[w][:3])
		}
	}
	assert.Equal(model.ZeroFrame(constants.NumNotes), batches[0][0].Notes[0][0])
	// batches stay in temporal order
	assert.Equal(seqs[1][5], batches[0][1].Targets[0][0])
}

func TestOverview(t *testing.T) {
	corpus := model.Corpus{
		Sequences: []model.Sequence{numberedSequence(7), numberedSequence(20)},
		Files:     model.FileNumToMidiPath{0: "a.mid", 1: "b.mid"},
		Gathered:  3,
	}
	o := Overview(corpus, 5, 4)

	assert := assert.New(t)
	assert.Equal(3, o.NumFiles)
	assert.Equal(1, o.NumSkipped)
	assert.Equal(2, o.NumSequences)
	assert.Equal(27, o.NumFrames)
	assert.Equal(19, o.NumWindows)
	assert.Equal(3, o.NumBatches)
	assert.InDelta(1.0/float64(constants.NumNotes), o.NoteDensity, 1e-12)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	seq := numberedSequence(10)
	require.NoError(t, midi.WriteMidiFile(filepath.Join(dir, "a.mid"), midi.Restore(seq, constants.MinNote)))
	require.NoError(t, midi.WriteMidiFile(filepath.Join(dir, "b.mid"), midi.Restore(seq[:3], constants.MinNote)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.mid"), []byte("not midi"), 0644))

	corpus, err := LoadAll(dir, 0)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Len(corpus.Sequences, 2)
	assert.Len(corpus.Files, 2)
	assert.Equal(3, corpus.Gathered)
	assert.Equal(filepath.Join(dir, "a.mid"), corpus.Files[0])
	assert.Equal(seq, corpus.Sequences[0])
	assert.Len(corpus.Sequences[1], 3)

	o := Overview(corpus, 1, 2)
	assert.Equal(3, o.NumFiles)
	assert.Equal(1, o.NumSkipped)
	assert.Equal(2, o.NumSequences)
}

func TestLoadAllEmptyDir(t *testing.T) {
	_, err := LoadAll(t.TempDir(), 0)
	assert.Error(t, err)
}
