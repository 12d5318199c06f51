package rnn

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jsphweid/biaxial/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// Checkpointer persists the model whenever training decides to.
type Checkpointer interface {
	Save(m *Model) error
}

// FileCheckpointer saves to a single checkpoint file.
type FileCheckpointer struct {
	Path string
}

func (c FileCheckpointer) Save(m *Model) error {
	return m.Save(c.Path)
}

// RunLog records a summary of every finished training run.
type RunLog interface {
	Record(run model.TrainingRun) error
}

// StopScope is what early stopping abandons once patience runs out.
type StopScope int

const (
	// StopSequence abandons the sequence being trained on and carries on
	// with the next one.
	StopSequence StopScope = iota
	// StopRun ends training.
	StopRun
)

func (s StopScope) String() string {
	switch s {
	case StopRun:
		return "run"
	default:
		return "sequence"
	}
}

func ParseStopScope(s string) (StopScope, error) {
	switch s {
	case "", "sequence":
		return StopSequence, nil
	case "run":
		return StopRun, nil
	}
	return StopSequence, errors.Errorf("unknown stop scope %q, expected sequence or run", s)
}

type TrainOptions struct {
	Epochs          int
	Patience        int
	CheckpointEvery int
	StopScope       StopScope
	Checkpointer    Checkpointer
	// optional
	RunLog RunLog
	Quiet  bool
}

func DefaultTrainOptions(path string) TrainOptions {
	return TrainOptions{
		Epochs:          1000,
		Patience:        10,
		CheckpointEvery: 1000,
		StopScope:       StopSequence,
		Checkpointer:    FileCheckpointer{Path: path},
	}
}

// trainStep is the step Train takes on every batch.
var trainStep = (*Model).TrainStep

// Train fits m to seqs, where every entry holds the batches of one sequence in
// temporal order. Every CheckpointEvery steps the cumulative F1 of the epoch is
// compared to the best seen so far: an improvement is saved, otherwise
// patience is used up. The model is always saved once more at the end.
func Train(m *Model, seqs [][]model.Batch, opts TrainOptions) (model.TrainingRun, error) {
	if opts.Checkpointer == nil {
		return model.TrainingRun{}, errors.New("training needs a checkpointer")
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 1
	}

	run := model.TrainingRun{ID: uuid.New().String(), StartedAt: time.Now()}
	m.RunID = run.ID
	logger := log.WithFields(log.Fields{"run": run.ID, "sequences": len(seqs), "epochs": opts.Epochs})
	logger.Info("Starting training")

	totalSteps := 0
	noImprovement := 0
	bestF1 := 0.0
	stopped := false

	for epoch := 0; epoch < opts.Epochs && !stopped; epoch++ {
		var trainingLoss, f1 float64
		step := 0

		bar := pb.New(len(seqs))
		bar.Prefix(fmt.Sprintf("%d/%d", epoch+1, opts.Epochs))
		bar.NotPrint = opts.Quiet
		bar.Start()

		for _, i := range m.rng.Perm(len(seqs)) {
			var state State
		batches:
			for _, batch := range seqs[i] {
				var res StepResult
				res, state = trainStep(m, batch, state)

				trainingLoss += res.Loss
				f1 += res.F1
				step++
				bar.Postfix(fmt.Sprintf(" loss=%.4f f1=%.4f", trainingLoss/float64(step), f1/float64(step)))

				if totalSteps%opts.CheckpointEvery == 0 {
					if f1 > bestF1 {
						if err := opts.Checkpointer.Save(m); err != nil {
							bar.Finish()
							return run, errors.Wrap(err, "could not save checkpoint")
						}
						bestF1 = f1
						noImprovement = 0
						run.Checkpoints++
					} else {
						noImprovement++
						if noImprovement > opts.Patience {
							run.EarlyStops++
							logger.WithFields(log.Fields{"step": totalSteps, "best_f1": bestF1}).Debug("No improvement, stopping early")
							if opts.StopScope == StopRun {
								stopped = true
							}
							break batches
						}
					}
				}
				totalSteps++
			}
			bar.Increment()
			if stopped {
				break
			}
		}
		bar.Finish()

		run.Epochs = epoch + 1
		if step > 0 {
			run.LastLoss = trainingLoss / float64(step)
			run.LastF1 = f1 / float64(step)
		}
		logger.WithFields(log.Fields{"epoch": epoch + 1, "loss": run.LastLoss, "f1": run.LastF1}).Info("Finished epoch")
	}

	if err := opts.Checkpointer.Save(m); err != nil {
		return run, errors.Wrap(err, "could not save final checkpoint")
	}
	run.Checkpoints++
	run.TotalSteps = totalSteps
	run.BestF1 = bestF1
	run.FinishedAt = time.Now()

	if opts.RunLog != nil {
		if err := opts.RunLog.Record(run); err != nil {
			logger.Warnf("Could not record training run: %v", err)
		}
	}
	logger.WithFields(log.Fields{"steps": totalSteps, "best_f1": bestF1}).Info("Finished training")
	return run, nil
}
