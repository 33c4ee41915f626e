package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer implements a single layer of a neural network
type Layer interface {
	fwd(*G.Node) (*G.Node, error)
	CloneTo(*G.ExprGraph) Layer

	Weights() *G.Node
	Bias() *G.Node
	Activation() *Activation
}

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// addfcLayers adds fully connected layers to the graph g. Layer i has
// sizes[i] units, a bias unit if biases[i] is true, and activation
// activations[i]. Weights are initialized with init and are named
// with the argument prefix.
func addfcLayers(g *G.ExprGraph, sizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, features int,
	prefix string) []Layer {
	layers := make([]Layer, 0, len(sizes))

	in := features
	for i, out := range sizes {
		weights := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(in, out),
			G.WithName(fmt.Sprintf("%sL%dW", prefix, i)),
			G.WithInit(init),
		)

		var bias *G.Node
		if biases[i] {
			bias = G.NewMatrix(
				g,
				tensor.Float64,
				G.WithShape(1, out),
				G.WithName(fmt.Sprintf("%sL%dB", prefix, i)),
				G.WithInit(G.Zeroes()),
			)
		}

		layers = append(layers, &fcLayer{
			weights: weights,
			bias:    bias,
			act:     activations[i],
		})
		in = out
	}

	return layers
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x = G.Must(G.Mul(x, f.Weights()))
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.Bias(), nil, []byte{0}))
	}
	if f.Activation() == nil {
		return x, nil
	}
	return f.Activation().fwd(x)
}

// CloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) CloneTo(g *G.ExprGraph) Layer {
	var newBias *G.Node
	if f.Bias() != nil {
		newBias = f.Bias().CloneTo(g)
	}

	return &fcLayer{
		weights: f.Weights().CloneTo(g),
		bias:    newBias,
		act:     f.act,
	}
}

// Activation returns the activation of the layer
func (f *fcLayer) Activation() *Activation {
	return f.act
}

// Bias returns the bias node of the layer, which is nil if the layer
// has no bias unit
func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

// Weights returns the weight node of the layer
func (f *fcLayer) Weights() *G.Node {
	return f.weights
}

// GobEncode implements the gob.GobEncoder interface. Only the values
// of the weights are encoded.
func (f *fcLayer) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(nodeData(f.weights)); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode weights: %v", err)
	}

	hasBias := f.bias != nil
	if err := enc.Encode(hasBias); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode bias flag: %v",
			err)
	}
	if hasBias {
		if err := enc.Encode(nodeData(f.bias)); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode bias: %v", err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The fcLayer must
// already exist in a graph with the same shape as the encoded layer,
// the encoded weight values are bound to its nodes.
func (f *fcLayer) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var weights []float64
	if err := dec.Decode(&weights); err != nil {
		return fmt.Errorf("gobdecode: could not decode weights: %v", err)
	}
	if err := letData(f.weights, weights); err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	var hasBias bool
	if err := dec.Decode(&hasBias); err != nil {
		return fmt.Errorf("gobdecode: could not decode bias flag: %v", err)
	}
	if hasBias != (f.bias != nil) {
		return fmt.Errorf("gobdecode: bias mismatch \n\twant(%v) \n\thave(%v)",
			f.bias != nil, hasBias)
	}
	if hasBias {
		var bias []float64
		if err := dec.Decode(&bias); err != nil {
			return fmt.Errorf("gobdecode: could not decode bias: %v", err)
		}
		if err := letData(f.bias, bias); err != nil {
			return fmt.Errorf("gobdecode: %v", err)
		}
	}

	return nil
}

// nodeData returns the backing data of a node's value
func nodeData(n *G.Node) []float64 {
	return n.Value().Data().([]float64)
}

// letData binds a copy of data to the node n, keeping n's shape
func letData(n *G.Node, data []float64) error {
	if len(data) != n.Shape().TotalSize() {
		return fmt.Errorf("letData: invalid number of values for node %v "+
			"\n\twant(%v) \n\thave(%v)", n.Name(), n.Shape().TotalSize(),
			len(data))
	}

	backing := make([]float64, len(data))
	copy(backing, data)
	t := tensor.New(tensor.WithShape(n.Shape()...), tensor.WithBacking(backing))
	return G.Let(n, t)
}
