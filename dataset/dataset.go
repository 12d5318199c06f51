package dataset

import (
	"github.com/jsphweid/biaxial/chunk"
	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/file"
	"github.com/jsphweid/biaxial/midi"
	"github.com/jsphweid/biaxial/model"
	"github.com/jsphweid/biaxial/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Windows staggers one sequence and attaches the beat and completion features
// of the step each window position predicts.
func Windows(seq model.Sequence, timeSteps int) (notes, beats, progress, targets [][][]float64) {
	notes, targets = chunk.Stagger(seq, timeSteps)
	for _, offset := range chunk.Offsets(len(seq), timeSteps) {
		b := make([][]float64, timeSteps)
		p := make([][]float64, timeSteps)
		for j := 0; j < timeSteps; j++ {
			b[j] = ComputeBeat(offset+j, constants.NotesPerBar)
			p[j] = ComputeCompletion(offset+j, len(seq))
		}
		beats = append(beats, b)
		progress = append(progress, p)
	}
	return notes, beats, progress, targets
}

// Process turns every sequence into its ordered list of training batches.
// Sequences too short to fill a single batch are left out.
func Process(seqs []model.Sequence, batchSize, timeSteps int) [][]model.Batch {
	var res [][]model.Batch
	for i, seq := range seqs {
		notes, beats, progress, targets := Windows(seq, timeSteps)

		noteChunks := chunk.Chunk(notes, batchSize)
		beatChunks := chunk.Chunk(beats, batchSize)
		progressChunks := chunk.Chunk(progress, batchSize)
		targetChunks := chunk.Chunk(targets, batchSize)

		if len(noteChunks) == 0 {
			log.WithFields(log.Fields{"sequence": i, "frames": len(seq)}).Debug("sequence too short for one batch")
			continue
		}

		batches := make([]model.Batch, len(noteChunks))
		for k := range noteChunks {
			batches[k] = model.Batch{
				Notes:    noteChunks[k],
				Beats:    beatChunks[k],
				Progress: progressChunks[k],
				Targets:  targetChunks[k],
			}
		}
		res = append(res, batches)
	}
	return res
}

// LoadAll decodes every MIDI file under dir into a piano roll over the modeled
// pitch range. Unreadable and empty files are skipped but still counted as
// gathered.
func LoadAll(dir string, maxNum int) (model.Corpus, error) {
	paths, err := util.GatherAllMidiPaths(dir, maxNum)
	if err != nil {
		return model.Corpus{}, errors.Wrapf(err, "could not gather midi files in %s", dir)
	}
	if len(paths) == 0 {
		return model.Corpus{}, errors.Errorf("no midi files found in %s", dir)
	}

	var seqs []model.Sequence
	var loaded []string
	for _, path := range paths {
		roll, err := midi.LoadPianoRoll(path, constants.MinNote, constants.MaxNote)
		if err != nil {
			log.WithFields(log.Fields{"file": path}).Warnf("Skipping: %v", err)
			continue
		}
		if len(roll) == 0 {
			log.WithFields(log.Fields{"file": path}).Warn("Skipping: no notes")
			continue
		}
		loaded = append(loaded, path)
		seqs = append(seqs, roll)
	}
	log.WithFields(log.Fields{"files": len(paths), "sequences": len(seqs)}).Info("Loaded training data")
	return model.Corpus{Sequences: seqs, Files: file.CreateFileNumMap(loaded), Gathered: len(paths)}, nil
}

// Overview summarises a corpus and what Process makes of it.
func Overview(corpus model.Corpus, batchSize, timeSteps int) model.CorpusOverview {
	res := model.CorpusOverview{
		NumFiles:     corpus.Gathered,
		NumSkipped:   corpus.Gathered - len(corpus.Files),
		NumSequences: len(corpus.Sequences),
	}
	var on, cells float64
	for _, seq := range corpus.Sequences {
		res.NumFrames += len(seq)
		windows := len(chunk.Offsets(len(seq), timeSteps))
		res.NumWindows += windows
		res.NumBatches += windows / batchSize
		for _, frame := range seq {
			on += floats.Sum(frame)
			cells += float64(len(frame))
		}
	}
	if cells > 0 {
		res.NoteDensity = on / cells
	}
	return res
}
