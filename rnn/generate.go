package rnn

import (
	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/dataset"
	"github.com/jsphweid/biaxial/model"
	"github.com/jsphweid/biaxial/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// generateGraphs advance the model one frame at a time without dropout: the
// time axis over all pitches at once, then the note axis one pitch per run so
// every decision can feed the next pitch.
type generateGraphs struct {
	timeAxis *timeAxisGraph
	timeVM   gorgonia.VM

	feature, cond, init *gorgonia.Node
	logit, next         *gorgonia.Node
	noteVM              gorgonia.VM
}

func (m *Model) buildGenerator() (*generateGraphs, error) {
	gen := &generateGraphs{}

	tg := gorgonia.NewGraph()
	var err error
	if gen.timeAxis, err = m.TimeAxis.build(tg, 1, 1, 0); err != nil {
		return nil, err
	}
	gen.timeVM = gorgonia.NewTapeMachine(tg)

	ng := gorgonia.NewGraph()
	gen.feature = stateInput(ng, "note_axis/feature", 1, m.Config.TimeAxisUnits)
	gen.cond = stateInput(ng, "note_axis/cond", 1, 1)
	gen.init = stateInput(ng, "note_axis/h0", 1, m.Config.NoteAxisUnits)
	cell := m.NoteAxis.Cell.bind(ng, "note_axis/gru")
	dense := m.NoteAxis.Dense.bind(ng, "note_axis/dense")
	if gen.logit, gen.next, err = noteStep(cell, dense, gen.feature, gen.cond, gen.init, 0); err != nil {
		return nil, errors.Wrap(err, "could not build note axis step")
	}
	gen.noteVM = gorgonia.NewTapeMachine(ng)
	return gen, nil
}

func (m *Model) generator() *generateGraphs {
	if m.gen == nil {
		gen, err := m.buildGenerator()
		util.Assert(err == nil, "Generate: %v", err)
		m.gen = gen
	}
	return m.gen
}

// sampler decides one frame pitch by pitch, lowest first.
type sampler struct {
	m      *Model
	frame  model.Frame
	forced model.Frame
	// what every pitch was conditioned on
	conds []float64
}

func (s *sampler) decide(p int, logit float64) float64 {
	if s.forced != nil {
		return s.forced[p]
	}
	if s.m.rng.Float64() <= sigmoid(logit) {
		return 1
	}
	return 0
}

// timeStep runs the time axis on one input frame and returns every pitch's
// feature row with the advanced per-pitch states.
func (gen *generateGraphs) timeStep(input model.Frame, context []float64, state []*tensor.Dense) ([][]float64, []*tensor.Dense) {
	inputs := TimeAxisInputs([][][]float64{{input}}, [][][]float64{{context}})
	defer gen.timeVM.Reset()

	err := gen.timeAxis.let(inputs, state)
	util.Assert(err == nil, "Generate: %v", err)
	err = gen.timeVM.RunAll()
	util.Assert(err == nil, "Generate: %+v", err)

	features := make([][]float64, constants.NumNotes)
	for p, n := range gen.timeAxis.out[0] {
		features[p] = append([]float64(nil), floatsOf(n)...)
	}
	return features, gen.timeAxis.finalState()
}

// noteStep runs the note axis for a single pitch.
func (gen *generateGraphs) noteStep(feature []float64, cond float64, h *tensor.Dense) (float64, *tensor.Dense) {
	defer gen.noteVM.Reset()

	err := gorgonia.Let(gen.feature, matrix(1, len(feature), feature))
	util.Assert(err == nil, "Generate: %v", err)
	err = gorgonia.Let(gen.cond, matrix(1, 1, []float64{cond}))
	util.Assert(err == nil, "Generate: %v", err)
	err = gorgonia.Let(gen.init, h)
	util.Assert(err == nil, "Generate: %v", err)
	err = gen.noteVM.RunAll()
	util.Assert(err == nil, "Generate: %+v", err)

	return floatsOf(gen.logit)[0], valueOf(gen.next)
}

// generateStep decides the frame that follows input. A non-nil forced frame
// replaces every decision.
func (m *Model) generateStep(input model.Frame, context []float64, state State, forced model.Frame) (*sampler, State) {
	gen := m.generator()
	features, timeState := gen.timeStep(input, context, state.TimeAxis)

	s := &sampler{
		m:      m,
		frame:  model.ZeroFrame(constants.NumNotes),
		forced: forced,
		conds:  make([]float64, constants.NumNotes),
	}
	h := state.NoteAxis
	if h == nil {
		h = zeros(1, m.Config.NoteAxisUnits)
	}
	for p := 0; p < constants.NumNotes; p++ {
		if p > 0 {
			s.conds[p] = s.frame[p-1]
		}
		var logit float64
		logit, h = gen.noteStep(features[p], s.conds[p], h)
		s.frame[p] = s.decide(p, logit)
	}
	return s, State{TimeAxis: timeState, NoteAxis: h}
}

// Generate composes length frames. The model is first primed on inspiration:
// each inspiration frame is forced as the prediction of its step and fed back
// as the next input, but never emitted.
func (m *Model) Generate(inspiration model.Sequence, length int) model.Sequence {
	util.Assert(length >= 0, "Generate: negative length %d", length)
	for i, frame := range inspiration {
		util.Assert(len(frame) == constants.NumNotes, "Generate: inspiration frame %d has %d notes", i, len(frame))
	}

	res := make(model.Sequence, 0, length)
	if length == 0 {
		return res
	}

	total := len(inspiration) + length
	input := model.ZeroFrame(constants.NumNotes)
	var state State

	for i := 0; i < total; i++ {
		context := append(dataset.ComputeBeat(i, constants.NotesPerBar), dataset.ComputeCompletion(i, total)...)
		var forced model.Frame
		if i < len(inspiration) {
			forced = inspiration[i]
		}

		var s *sampler
		s, state = m.generateStep(input, context, state, forced)
		if i >= len(inspiration) {
			res = append(res, s.frame)
		}
		input = s.frame
	}

	log.WithFields(log.Fields{"inspiration": len(inspiration), "length": length}).Debug("Generated sequence")
	return res
}
