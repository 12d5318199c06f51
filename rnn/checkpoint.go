package rnn

import (
	"math/rand"
	"time"

	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const CheckpointVersion = 2

// Checkpoint is the on-disk form of a Model.
type Checkpoint struct {
	Version   int
	RunID     string
	CreatedAt time.Time
	Config    Config
	NumNotes  int

	Shapes map[string][2]int
	Params map[string][]float64
	// optimisation steps taken; the solver's moments start over on restore
	Steps int
}

func (m *Model) checkpoint() Checkpoint {
	c := Checkpoint{
		Version:   CheckpointVersion,
		RunID:     m.RunID,
		CreatedAt: time.Now(),
		Config:    m.Config,
		NumNotes:  constants.NumNotes,
		Shapes:    make(map[string][2]int),
		Params:    make(map[string][]float64),
		Steps:     m.Steps,
	}
	for name, p := range m.params {
		shape := p.Shape()
		c.Shapes[name] = [2]int{shape[0], shape[1]}
		c.Params[name] = p.Data().([]float64)
	}
	return c
}

// Save writes the parameters to path.
func (m *Model) Save(path string) error {
	if err := util.CreateBinary(path, m.checkpoint()); err != nil {
		return errors.Wrapf(err, "could not save model to %s", path)
	}
	log.WithFields(log.Fields{"path": path, "run": m.RunID}).Debug("Saved model")
	return nil
}

// ReadCheckpoint loads a checkpoint without building a model from it.
func ReadCheckpoint(path string) (Checkpoint, error) {
	c, err := util.ReadBinary[Checkpoint](path)
	if err != nil {
		return c, errors.Wrapf(err, "could not read checkpoint %s", path)
	}
	if c.Version != CheckpointVersion {
		return c, errors.Errorf("checkpoint %s has version %d, expected %d", path, c.Version, CheckpointVersion)
	}
	if c.NumNotes != constants.NumNotes {
		return c, errors.Errorf("checkpoint %s models %d notes, expected %d", path, c.NumNotes, constants.NumNotes)
	}
	return c, nil
}

// Restore rebuilds the model saved at path.
func Restore(path string) (*Model, error) {
	c, err := ReadCheckpoint(path)
	if err != nil {
		return nil, err
	}

	m := NewModel(c.Config)
	m.RunID = c.RunID
	if len(c.Params) != len(m.params) {
		return nil, errors.Errorf("checkpoint %s has %d parameters, expected %d", path, len(c.Params), len(m.params))
	}
	for name, p := range m.params {
		w, ok := c.Params[name]
		if !ok {
			return nil, errors.Errorf("checkpoint %s is missing parameter %s", path, name)
		}
		shape := p.Shape()
		data := p.Data().([]float64)
		if c.Shapes[name] != [2]int{shape[0], shape[1]} || len(w) != len(data) {
			return nil, errors.Errorf("checkpoint %s: parameter %s is %v, expected %v", path, name, c.Shapes[name], shape)
		}
		copy(data, w)
	}

	m.Steps = c.Steps
	m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	if c.Config.Seed != 0 {
		m.rng = rand.New(rand.NewSource(c.Config.Seed + int64(c.Steps)))
	}

	log.WithFields(log.Fields{"path": path, "run": c.RunID, "steps": c.Steps}).Info("Restored model")
	return m, nil
}
