package rnn

import (
	"math"
	"math/rand"
	"time"

	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/metrics"
	"github.com/jsphweid/biaxial/model"
	"github.com/jsphweid/biaxial/util"
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type Config struct {
	BatchSize     int
	TimeSteps     int
	TimeAxisUnits int
	NoteAxisUnits int
	Dropout       float64
	LearningRate  float64
	// 0 seeds from the clock
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     constants.BatchSize,
		TimeSteps:     constants.TimeSteps,
		TimeAxisUnits: 128,
		NoteAxisUnits: 64,
		Dropout:       0.5,
		LearningRate:  0.001,
	}
}

// State is the recurrent state carried between consecutive windows of one
// sequence: one [batch x units] matrix per pitch for the time axis and a
// [time*batch x units] matrix for the note axis. The zero value is a reset.
type State struct {
	TimeAxis []*tensor.Dense
	NoteAxis *tensor.Dense
}

func (s State) IsZero() bool {
	return s.TimeAxis == nil && s.NoteAxis == nil
}

// Model owns the network parameters, the optimizer and the random source used
// for shuffling and sampling. Parameters live in tensors shared by every
// expression graph the model builds.
type Model struct {
	Config   Config
	RunID    string
	TimeAxis *TimeAxisBlock
	NoteAxis *NoteAxisBlock
	Solver   *gorgonia.AdamSolver
	// optimisation steps taken, carried across checkpoints
	Steps    int

	rng     *rand.Rand
	params  map[string]*tensor.Dense
	trainer *trainGraph
	gen     *generateGraphs
}

// NewModel builds a randomly initialised model.
func NewModel(cfg Config) *Model {
	util.Assert(cfg.TimeAxisUnits > 0 && cfg.NoteAxisUnits > 0, "NewModel: units %d/%d", cfg.TimeAxisUnits, cfg.NoteAxisUnits)
	util.Assert(cfg.Dropout >= 0 && cfg.Dropout < 1, "NewModel: dropout %v", cfg.Dropout)
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	m := &Model{
		Config:   cfg,
		TimeAxis: NewTimeAxisBlock(cfg.TimeAxisUnits),
		NoteAxis: NewNoteAxisBlock(cfg.TimeAxisUnits, cfg.NoteAxisUnits),
		Solver:   newSolver(cfg.LearningRate),
		rng:      rand.New(rand.NewSource(seed)),
	}
	m.params = make(map[string]*tensor.Dense)
	m.TimeAxis.Cell.addParams("time_axis/gru", m.params)
	m.NoteAxis.Cell.addParams("note_axis/gru", m.params)
	m.NoteAxis.Dense.addParams("note_axis/dense", m.params)
	return m
}

func newSolver(learningRate float64) *gorgonia.AdamSolver {
	return gorgonia.NewAdamSolver(
		gorgonia.WithLearnRate(learningRate),
		gorgonia.WithBeta1(0.9),
		gorgonia.WithBeta2(0.999),
		gorgonia.WithEps(1e-8),
	)
}

// Params returns every trainable tensor by name.
func (m *Model) Params() map[string]*tensor.Dense {
	return m.params
}

// Rand exposes the model's random source.
func (m *Model) Rand() *rand.Rand {
	return m.rng
}

// contexts joins beat and progress windows into [batch][time][ContextDim].
func contexts(beats, progress [][][]float64) [][][]float64 {
	util.Assert(len(beats) == len(progress), "contexts: %d beat windows, %d progress windows", len(beats), len(progress))
	joined := make([][][]float64, len(beats))
	for b := range beats {
		util.Assert(len(beats[b]) == len(progress[b]), "contexts: window %d misaligned", b)
		joined[b] = make([][]float64, len(beats[b]))
		for t := range beats[b] {
			joined[b][t] = append(append(make([]float64, 0, constants.ContextDim), beats[b][t]...), progress[b][t]...)
		}
	}
	return joined
}

// timeMajor flattens [batch][time][feature] into rows ordered t*batch+s.
func timeMajor(data [][][]float64, width int) *tensor.Dense {
	batch, steps := len(data), len(data[0])
	backing := make([]float64, 0, steps*batch*width)
	for t := 0; t < steps; t++ {
		for s := 0; s < batch; s++ {
			util.Assert(len(data[s][t]) == width, "timeMajor: [%d][%d] has %d features, want %d", s, t, len(data[s][t]), width)
			backing = append(backing, data[s][t]...)
		}
	}
	return matrix(steps*batch, width, backing)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// trainGraph is the full model unrolled over one batch with teacher forcing,
// a mean sigmoid cross-entropy cost and its gradients.
type trainGraph struct {
	g        *gorgonia.ExprGraph
	timeAxis *timeAxisGraph
	noteAxis *noteAxisGraph
	targets  *gorgonia.Node
	cost     *gorgonia.Node

	// solver moments are kept by position, so the order is fixed
	learnables gorgonia.Nodes
	vm         gorgonia.VM
}

// sigmoidCrossEntropy is mean(max(x, 0) - x*y + log(1 + exp(-|x|))), the
// stable form of the binary cross-entropy of sigmoid(x) against y.
func sigmoidCrossEntropy(logits, labels *gorgonia.Node) (*gorgonia.Node, error) {
	relu, err := gorgonia.Rectify(logits)
	if err != nil {
		return nil, err
	}
	xy, err := gorgonia.HadamardProd(logits, labels)
	if err != nil {
		return nil, err
	}
	abs := gorgonia.Must(gorgonia.Abs(logits))
	soft := gorgonia.Must(gorgonia.Log1p(gorgonia.Must(gorgonia.Exp(gorgonia.Must(gorgonia.Neg(abs))))))
	loss := gorgonia.Must(gorgonia.Add(gorgonia.Must(gorgonia.Sub(relu, xy)), soft))
	return gorgonia.Mean(loss)
}

func (m *Model) buildTrainer() (*trainGraph, error) {
	batch, steps := m.Config.BatchSize, m.Config.TimeSteps
	g := gorgonia.NewGraph()

	timeAxis, err := m.TimeAxis.build(g, batch, steps, m.Config.Dropout)
	if err != nil {
		return nil, err
	}
	noteAxis, err := m.NoteAxis.build(g, timeAxis.out, m.Config.Dropout)
	if err != nil {
		return nil, err
	}

	tg := &trainGraph{
		g:        g,
		timeAxis: timeAxis,
		noteAxis: noteAxis,
		targets:  stateInput(g, "targets", steps*batch, constants.NumNotes),
	}
	if tg.cost, err = sigmoidCrossEntropy(noteAxis.logits, tg.targets); err != nil {
		return nil, errors.Wrap(err, "could not build cost")
	}

	tg.learnables = append(tg.learnables, timeAxis.cell.learnables()...)
	tg.learnables = append(tg.learnables, noteAxis.cell.learnables()...)
	tg.learnables = append(tg.learnables, noteAxis.dense.learnables()...)
	if _, err = gorgonia.Grad(tg.cost, tg.learnables...); err != nil {
		return nil, errors.Wrap(err, "could not differentiate cost")
	}
	tg.vm = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(tg.learnables...))
	return tg, nil
}

// syncParams copies updated values back into the model's tensors when the
// machine did not update them in place.
func (m *Model) syncParams(tg *trainGraph) {
	for _, n := range tg.learnables {
		p := m.params[n.Name()]
		v, ok := n.Value().(*tensor.Dense)
		if !ok || v == p {
			continue
		}
		copy(p.Data().([]float64), v.Data().([]float64))
	}
}

type StepResult struct {
	Loss float64
	F1   float64
	// rounded probabilities, [batch][time][note]
	Pred [][][]float64
}

// TrainStep runs one optimisation step on a batch, starting from state, and
// returns the state for the next window of the same sequences.
func (m *Model) TrainStep(b model.Batch, state State) (StepResult, State) {
	util.Assert(b.Size() == m.Config.BatchSize, "TrainStep: batch of %d, want %d", b.Size(), m.Config.BatchSize)
	util.Assert(b.TimeSteps() == m.Config.TimeSteps, "TrainStep: %d time steps, want %d", b.TimeSteps(), m.Config.TimeSteps)

	if m.trainer == nil {
		tg, err := m.buildTrainer()
		util.Assert(err == nil, "TrainStep: %v", err)
		m.trainer = tg
	}
	tg := m.trainer
	defer tg.vm.Reset()

	err := tg.timeAxis.let(TimeAxisInputs(b.Notes, contexts(b.Beats, b.Progress)), state.TimeAxis)
	util.Assert(err == nil, "TrainStep: %v", err)
	err = tg.noteAxis.let(TeacherForcing(b.Targets), state.NoteAxis)
	util.Assert(err == nil, "TrainStep: %v", err)
	err = gorgonia.Let(tg.targets, timeMajor(b.Targets, constants.NumNotes))
	util.Assert(err == nil, "TrainStep: %v", err)

	err = tg.vm.RunAll()
	util.Assert(err == nil, "TrainStep: %+v", err)

	res := StepResult{Loss: tg.cost.Value().Data().(float64)}
	batch, steps := b.Size(), b.TimeSteps()
	logits := floatsOf(tg.noteAxis.logits)
	res.Pred = make([][][]float64, batch)
	for s := range res.Pred {
		res.Pred[s] = make([][]float64, steps)
		for t := range res.Pred[s] {
			row := logits[(t*batch+s)*constants.NumNotes : (t*batch+s+1)*constants.NumNotes]
			res.Pred[s][t] = make([]float64, constants.NumNotes)
			for p, x := range row {
				res.Pred[s][t][p] = math.Round(sigmoid(x))
			}
		}
	}
	res.F1 = metrics.MeanWeightedF1(b.Targets, res.Pred)

	next := State{TimeAxis: tg.timeAxis.finalState(), NoteAxis: valueOf(tg.noteAxis.final)}

	err = m.Solver.Step(gorgonia.NodesToValueGrads(tg.learnables))
	util.Assert(err == nil, "TrainStep: %v", err)
	m.syncParams(tg)
	m.Steps++
	return res, next
}
