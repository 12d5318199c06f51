package rnn

import (
	"fmt"

	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/util"
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// WindowSize is the width of the local pitch window around every note.
const WindowSize = 2*constants.Octave + 1

// TimeAxisInputSize is the per-pitch input width: local window, context,
// pitch position, pitch class and pitch-class histogram.
const TimeAxisInputSize = WindowSize + constants.ContextDim + 1 + constants.Octave + constants.Octave

// Features is the time-axis output indexed [time][note], each node a
// [batch x units] matrix: logically [batch, time, NumNotes, units].
type Features [][]*gorgonia.Node

// Shape reports [batch, time, notes, units].
func (f Features) Shape() [4]int {
	if len(f) == 0 || len(f[0]) == 0 {
		return [4]int{0, len(f), 0, 0}
	}
	s := f[0][0].Shape()
	return [4]int{s[0], len(f), len(f[0]), s[1]}
}

// PadOctave surrounds frame with one octave of silence on each side.
func PadOctave(frame []float64) []float64 {
	padded := make([]float64, len(frame)+2*constants.Octave)
	copy(padded[constants.Octave:], frame)
	return padded
}

// PitchClassHistogram sums the octave-aligned slices of an unpadded frame.
func PitchClassHistogram(frame []float64) []float64 {
	util.Assert(len(frame) == constants.NumNotes, "PitchClassHistogram: frame of %d notes", len(frame))
	hist := make([]float64, constants.Octave)
	for o := 0; o < constants.NumOctaves; o++ {
		for c := 0; c < constants.Octave; c++ {
			hist[c] += frame[o*constants.Octave+c]
		}
	}
	return hist
}

// PitchInput builds the time-axis input row of one pitch. padded must come
// from PadOctave, so pitch i's window starts at padded[i].
func PitchInput(padded, context, hist []float64, pitch int) []float64 {
	row := make([]float64, 0, TimeAxisInputSize)
	row = append(row, padded[pitch:pitch+WindowSize]...)
	row = append(row, context...)
	row = append(row, float64(pitch)/float64(constants.NumNotes-1))
	pitchClass := make([]float64, constants.Octave)
	pitchClass[pitch%constants.Octave] = 1
	row = append(row, pitchClass...)
	row = append(row, hist...)
	return row
}

// TimeAxisInputs turns notes and contexts, both laid out [batch][time][feature],
// into one [batch x TimeAxisInputSize] tensor per time step and pitch.
func TimeAxisInputs(notes, contexts [][][]float64) [][]*tensor.Dense {
	util.Assert(len(notes) > 0 && len(notes) == len(contexts), "TimeAxisInputs: %d note windows, %d context windows", len(notes), len(contexts))
	batch, steps := len(notes), len(notes[0])

	res := make([][]*tensor.Dense, steps)
	for t := 0; t < steps; t++ {
		rows := make([][]float64, constants.NumNotes)
		for i := range rows {
			rows[i] = make([]float64, 0, batch*TimeAxisInputSize)
		}
		for s := 0; s < batch; s++ {
			util.Assert(len(notes[s]) == steps && len(contexts[s]) == steps, "TimeAxisInputs: window %d is misaligned", s)
			frame := notes[s][t]
			util.Assert(len(frame) == constants.NumNotes, "TimeAxisInputs: notes[%d][%d] has %d notes", s, t, len(frame))
			context := contexts[s][t]
			util.Assert(len(context) == constants.ContextDim, "TimeAxisInputs: contexts[%d][%d] has %d features", s, t, len(context))

			padded := PadOctave(frame)
			hist := PitchClassHistogram(frame)
			for i := 0; i < constants.NumNotes; i++ {
				rows[i] = append(rows[i], PitchInput(padded, context, hist, i)...)
			}
		}
		res[t] = make([]*tensor.Dense, constants.NumNotes)
		for i := range rows {
			res[t][i] = matrix(batch, TimeAxisInputSize, rows[i])
		}
	}
	return res
}

// TimeAxisBlock runs one shared GRU along time, independently for every pitch.
type TimeAxisBlock struct {
	Cell *GRU
}

func NewTimeAxisBlock(units int) *TimeAxisBlock {
	return &TimeAxisBlock{Cell: NewGRU(TimeAxisInputSize, units)}
}

// timeAxisGraph is a TimeAxisBlock unrolled over a fixed batch and number of
// steps. Inputs and initial states are filled with Let before every run.
type timeAxisGraph struct {
	cell   *gruNodes
	inputs [][]*gorgonia.Node
	init   []*gorgonia.Node
	out    Features
	final  []*gorgonia.Node
}

func (b *TimeAxisBlock) build(g *gorgonia.ExprGraph, batch, steps int, dropout float64) (*timeAxisGraph, error) {
	tg := &timeAxisGraph{
		cell:   b.Cell.bind(g, "time_axis/gru"),
		inputs: make([][]*gorgonia.Node, steps),
		init:   make([]*gorgonia.Node, constants.NumNotes),
		out:    make(Features, steps),
		final:  make([]*gorgonia.Node, constants.NumNotes),
	}
	for t := range tg.inputs {
		tg.inputs[t] = make([]*gorgonia.Node, constants.NumNotes)
		tg.out[t] = make([]*gorgonia.Node, constants.NumNotes)
		for i := range tg.inputs[t] {
			tg.inputs[t][i] = stateInput(g, fmt.Sprintf("time_axis/x_%d_%d", t, i), batch, TimeAxisInputSize)
		}
	}

	for i := 0; i < constants.NumNotes; i++ {
		tg.init[i] = stateInput(g, fmt.Sprintf("time_axis/h0_%d", i), batch, b.Cell.Units)
		h := tg.init[i]
		for t := 0; t < steps; t++ {
			var err error
			if h, err = tg.cell.step(tg.inputs[t][i], h); err != nil {
				return nil, errors.Wrapf(err, "time axis step %d of pitch %d", t, i)
			}
			out := h
			if dropout > 0 {
				if out, err = gorgonia.Dropout(h, dropout); err != nil {
					return nil, errors.Wrap(err, "time axis dropout")
				}
			}
			tg.out[t][i] = out
		}
		tg.final[i] = h
	}

	shape := tg.out.Shape()
	if shape != [4]int{batch, steps, constants.NumNotes, b.Cell.Units} {
		return nil, errors.Errorf("time axis output shape %v", shape)
	}
	return tg, nil
}

// let binds inputs ([time][pitch]) and the per-pitch initial states, which
// may be nil for a fresh start.
func (tg *timeAxisGraph) let(inputs [][]*tensor.Dense, init []*tensor.Dense) error {
	if len(inputs) != len(tg.inputs) {
		return errors.Errorf("time axis unrolled over %d steps, got %d", len(tg.inputs), len(inputs))
	}
	for t := range inputs {
		for i, x := range inputs[t] {
			if !x.Shape().Eq(tg.inputs[t][i].Shape()) {
				return errors.Errorf("time axis input [%d][%d] is %v, want %v", t, i, x.Shape(), tg.inputs[t][i].Shape())
			}
			if err := gorgonia.Let(tg.inputs[t][i], x); err != nil {
				return errors.Wrap(err, "could not bind time axis input")
			}
		}
	}
	if init != nil && len(init) != constants.NumNotes {
		return errors.Errorf("%d initial time axis states", len(init))
	}
	for i, n := range tg.init {
		h := zeros(n.Shape()[0], n.Shape()[1])
		if init != nil && init[i] != nil {
			h = init[i]
		}
		if err := gorgonia.Let(n, h); err != nil {
			return errors.Wrap(err, "could not bind time axis state")
		}
	}
	return nil
}

func (tg *timeAxisGraph) finalState() []*tensor.Dense {
	res := make([]*tensor.Dense, len(tg.final))
	for i, n := range tg.final {
		res[i] = valueOf(n)
	}
	return res
}
