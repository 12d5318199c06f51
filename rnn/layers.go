package rnn

import (
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func newWeights(rows, cols int) *tensor.Dense {
	backing := gorgonia.GlorotU(1.0)(tensor.Float64, rows, cols).([]float64)
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}

func newBias(cols int, fill float64) *tensor.Dense {
	backing := make([]float64, cols)
	for i := range backing {
		backing[i] = fill
	}
	return tensor.New(tensor.WithShape(1, cols), tensor.WithBacking(backing))
}

// param binds a shared weight tensor into g. Every graph built from the same
// model reads and updates the same backing memory.
func param(g *gorgonia.ExprGraph, name string, t *tensor.Dense) *gorgonia.Node {
	shape := t.Shape()
	return gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(shape[0], shape[1]), gorgonia.WithName(name), gorgonia.WithValue(t))
}

// GRU is a gated recurrent unit. One instance holds the weights shared by
// every pitch (time axis) or every time step (note axis); hidden state is
// passed in and out by the caller.
type GRU struct {
	InputSize int
	Units     int

	// gates and candidate read [x, h] and [x, r*h]
	Reset, Update, Candidate             *tensor.Dense
	ResetBias, UpdateBias, CandidateBias *tensor.Dense
}

func NewGRU(inputSize, units int) *GRU {
	return &GRU{
		InputSize:     inputSize,
		Units:         units,
		Reset:         newWeights(inputSize+units, units),
		Update:        newWeights(inputSize+units, units),
		Candidate:     newWeights(inputSize+units, units),
		ResetBias:     newBias(units, 1),
		UpdateBias:    newBias(units, 1),
		CandidateBias: newBias(units, 0),
	}
}

func (c *GRU) addParams(prefix string, into map[string]*tensor.Dense) {
	into[prefix+"/reset"] = c.Reset
	into[prefix+"/update"] = c.Update
	into[prefix+"/candidate"] = c.Candidate
	into[prefix+"/reset_bias"] = c.ResetBias
	into[prefix+"/update_bias"] = c.UpdateBias
	into[prefix+"/candidate_bias"] = c.CandidateBias
}

// gruNodes is a GRU bound into one expression graph.
type gruNodes struct {
	cell *GRU

	reset, update, candidate        *gorgonia.Node
	resetBias, updateBias, candBias *gorgonia.Node
}

func (c *GRU) bind(g *gorgonia.ExprGraph, prefix string) *gruNodes {
	return &gruNodes{
		cell:       c,
		reset:      param(g, prefix+"/reset", c.Reset),
		update:     param(g, prefix+"/update", c.Update),
		candidate:  param(g, prefix+"/candidate", c.Candidate),
		resetBias:  param(g, prefix+"/reset_bias", c.ResetBias),
		updateBias: param(g, prefix+"/update_bias", c.UpdateBias),
		candBias:   param(g, prefix+"/candidate_bias", c.CandidateBias),
	}
}

func (n *gruNodes) learnables() gorgonia.Nodes {
	return gorgonia.Nodes{n.reset, n.update, n.candidate, n.resetBias, n.updateBias, n.candBias}
}

func affine(x, w, b *gorgonia.Node) (*gorgonia.Node, error) {
	xw, err := gorgonia.Mul(x, w)
	if err != nil {
		return nil, err
	}
	return gorgonia.BroadcastAdd(xw, b, nil, []byte{0})
}

// step advances the hidden state h ([batch x units]) by one input x
// ([batch x inputSize]).
func (n *gruNodes) step(x, h *gorgonia.Node) (*gorgonia.Node, error) {
	if x.Shape()[1] != n.cell.InputSize {
		return nil, errors.Errorf("GRU: input has %d features, want %d", x.Shape()[1], n.cell.InputSize)
	}
	if h.Shape()[0] != x.Shape()[0] || h.Shape()[1] != n.cell.Units {
		return nil, errors.Errorf("GRU: state %v for input %v and %d units", h.Shape(), x.Shape(), n.cell.Units)
	}

	xh, err := gorgonia.Concat(1, x, h)
	if err != nil {
		return nil, errors.Wrap(err, "GRU: concat input")
	}
	r, err := affine(xh, n.reset, n.resetBias)
	if err != nil {
		return nil, errors.Wrap(err, "GRU: reset gate")
	}
	z, err := affine(xh, n.update, n.updateBias)
	if err != nil {
		return nil, errors.Wrap(err, "GRU: update gate")
	}
	r = gorgonia.Must(gorgonia.Sigmoid(r))
	z = gorgonia.Must(gorgonia.Sigmoid(z))

	rh := gorgonia.Must(gorgonia.HadamardProd(r, h))
	xrh, err := gorgonia.Concat(1, x, rh)
	if err != nil {
		return nil, errors.Wrap(err, "GRU: concat reset state")
	}
	cand, err := affine(xrh, n.candidate, n.candBias)
	if err != nil {
		return nil, errors.Wrap(err, "GRU: candidate")
	}
	cand = gorgonia.Must(gorgonia.Tanh(cand))

	// h' = z*h + (1-z)*cand
	keep := gorgonia.Must(gorgonia.HadamardProd(z, h))
	oneMinus := gorgonia.Must(gorgonia.Sub(gorgonia.NewConstant(1.0), z))
	write := gorgonia.Must(gorgonia.HadamardProd(oneMinus, cand))
	return gorgonia.Add(keep, write)
}

// Dense is a fully connected projection.
type Dense struct {
	Kernel *tensor.Dense
	Bias   *tensor.Dense
}

func NewDense(inputSize, units int) *Dense {
	return &Dense{
		Kernel: newWeights(inputSize, units),
		Bias:   newBias(units, 0),
	}
}

func (d *Dense) addParams(prefix string, into map[string]*tensor.Dense) {
	into[prefix+"/kernel"] = d.Kernel
	into[prefix+"/bias"] = d.Bias
}

type denseNodes struct {
	kernel, bias *gorgonia.Node
}

func (d *Dense) bind(g *gorgonia.ExprGraph, prefix string) *denseNodes {
	return &denseNodes{
		kernel: param(g, prefix+"/kernel", d.Kernel),
		bias:   param(g, prefix+"/bias", d.Bias),
	}
}

func (n *denseNodes) learnables() gorgonia.Nodes {
	return gorgonia.Nodes{n.kernel, n.bias}
}

func (n *denseNodes) forward(x *gorgonia.Node) (*gorgonia.Node, error) {
	return affine(x, n.kernel, n.bias)
}

// stateInput declares a [rows x cols] input node that is filled with Let
// before every run.
func stateInput(g *gorgonia.ExprGraph, name string, rows, cols int) *gorgonia.Node {
	return gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(rows, cols), gorgonia.WithName(name))
}

func zeros(rows, cols int) *tensor.Dense {
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(make([]float64, rows*cols)))
}

func matrix(rows, cols int, backing []float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}

// valueOf copies a node's value out of the machine so it survives Reset.
func valueOf(n *gorgonia.Node) *tensor.Dense {
	return n.Value().(tensor.Tensor).Clone().(*tensor.Dense)
}

func floatsOf(n *gorgonia.Node) []float64 {
	return n.Value().Data().([]float64)
}

func concatRows(ns []*gorgonia.Node) (*gorgonia.Node, error) {
	if len(ns) == 1 {
		return ns[0], nil
	}
	return gorgonia.Concat(0, ns...)
}

func concatCols(ns []*gorgonia.Node) (*gorgonia.Node, error) {
	if len(ns) == 1 {
		return ns[0], nil
	}
	return gorgonia.Concat(1, ns...)
}
