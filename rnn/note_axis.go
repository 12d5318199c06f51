package rnn

import (
	"fmt"

	"github.com/jsphweid/biaxial/constants"
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ShiftTargets moves a frame up by one pitch: position 0 becomes silence and
// the last pitch falls off.
func ShiftTargets(frame []float64) []float64 {
	shifted := make([]float64, len(frame))
	if len(frame) > 0 {
		copy(shifted[1:], frame[:len(frame)-1])
	}
	return shifted
}

// TeacherForcing conditions every pitch on the true value of the pitch below
// it. targets is laid out [batch][time][note]; the result holds one
// [time*batch x 1] column per pitch, rows ordered time-major.
func TeacherForcing(targets [][][]float64) []*tensor.Dense {
	batch := len(targets)
	steps := 0
	if batch > 0 {
		steps = len(targets[0])
	}

	columns := make([][]float64, constants.NumNotes)
	for p := range columns {
		columns[p] = make([]float64, steps*batch)
	}
	for s := 0; s < batch; s++ {
		for t := 0; t < steps; t++ {
			shifted := ShiftTargets(targets[s][t])
			for p := range columns {
				columns[p][t*batch+s] = shifted[p]
			}
		}
	}

	res := make([]*tensor.Dense, constants.NumNotes)
	for p := range res {
		res[p] = matrix(steps*batch, 1, columns[p])
	}
	return res
}

// NoteAxisBlock runs one shared GRU across the pitches of each time step and
// projects every output to a single logit.
type NoteAxisBlock struct {
	Cell  *GRU
	Dense *Dense
}

func NewNoteAxisBlock(timeAxisUnits, units int) *NoteAxisBlock {
	return &NoteAxisBlock{
		Cell:  NewGRU(timeAxisUnits+1, units),
		Dense: NewDense(units, 1),
	}
}

// noteStep conditions feature ([rows x timeAxisUnits]) on cond ([rows x 1]) and
// returns the pitch's logit and the advanced state.
func noteStep(cell *gruNodes, dense *denseNodes, feature, cond, h *gorgonia.Node, dropout float64) (logit, next *gorgonia.Node, err error) {
	x, err := gorgonia.Concat(1, feature, cond)
	if err != nil {
		return nil, nil, errors.Wrap(err, "note axis: concat condition")
	}
	if next, err = cell.step(x, h); err != nil {
		return nil, nil, err
	}
	out := next
	if dropout > 0 {
		if out, err = gorgonia.Dropout(next, dropout); err != nil {
			return nil, nil, errors.Wrap(err, "note axis dropout")
		}
	}
	if logit, err = dense.forward(out); err != nil {
		return nil, nil, errors.Wrap(err, "note axis projection")
	}
	return logit, next, nil
}

// noteAxisGraph runs the note axis over every time step at once: time is
// folded into the rows, so each pitch is a single GRU step on
// [time*batch x units].
type noteAxisGraph struct {
	cell   *gruNodes
	dense  *denseNodes
	cond   []*gorgonia.Node
	init   *gorgonia.Node
	logits *gorgonia.Node
	final  *gorgonia.Node
}

func (b *NoteAxisBlock) build(g *gorgonia.ExprGraph, features Features, dropout float64) (*noteAxisGraph, error) {
	shape := features.Shape()
	batch, steps := shape[0], shape[1]
	if shape[2] != constants.NumNotes || shape[3]+1 != b.Cell.InputSize {
		return nil, errors.Errorf("note axis: features shape %v", shape)
	}
	rows := steps * batch

	ng := &noteAxisGraph{
		cell:  b.Cell.bind(g, "note_axis/gru"),
		dense: b.Dense.bind(g, "note_axis/dense"),
		cond:  make([]*gorgonia.Node, constants.NumNotes),
		init:  stateInput(g, "note_axis/h0", rows, b.Cell.Units),
	}

	logits := make([]*gorgonia.Node, constants.NumNotes)
	h := ng.init
	for p := 0; p < constants.NumNotes; p++ {
		column := make([]*gorgonia.Node, steps)
		for t := range column {
			column[t] = features[t][p]
		}
		feature, err := concatRows(column)
		if err != nil {
			return nil, errors.Wrapf(err, "note axis: gather pitch %d", p)
		}
		ng.cond[p] = stateInput(g, fmt.Sprintf("note_axis/cond_%d", p), rows, 1)
		if logits[p], h, err = noteStep(ng.cell, ng.dense, feature, ng.cond[p], h, dropout); err != nil {
			return nil, errors.Wrapf(err, "note axis pitch %d", p)
		}
	}
	ng.final = h

	var err error
	if ng.logits, err = concatCols(logits); err != nil {
		return nil, errors.Wrap(err, "note axis: join logits")
	}
	return ng, nil
}

// let binds the per-pitch conditions and the initial state, which may be nil.
func (ng *noteAxisGraph) let(cond []*tensor.Dense, init *tensor.Dense) error {
	if len(cond) != len(ng.cond) {
		return errors.Errorf("%d note axis conditions, want %d", len(cond), len(ng.cond))
	}
	for p, c := range cond {
		if !c.Shape().Eq(ng.cond[p].Shape()) {
			return errors.Errorf("note axis condition %d is %v, want %v", p, c.Shape(), ng.cond[p].Shape())
		}
		if err := gorgonia.Let(ng.cond[p], c); err != nil {
			return errors.Wrap(err, "could not bind note axis condition")
		}
	}
	if init == nil {
		init = zeros(ng.init.Shape()[0], ng.init.Shape()[1])
	}
	return errors.Wrap(gorgonia.Let(ng.init, init), "could not bind note axis state")
}
