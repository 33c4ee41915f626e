package network

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted.
type multiHeadMLP struct {
	g          *G.ExprGraph
	layers     []Layer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Data needed for gobbing, excluding the final linear layer
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes, The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// layer is always added such that given any input, the output will
// be outputs. The final layer also contains a bias unit, and bias units
// for each additional hidden layer is specified by biases. The final
// layer will contain no activations, and the activations of additional
// hidden layers is specified by activations. The parameter init
// determines the weight initialization scheme.
//
// The function works such that for index i, hiddenSizes[i] is the
// number of nodes in hidden layer i; biases[i] is true if the
// hidden layer will contain a bias unit and false otherwise; and
// activations[i] is the activation function for hidden layer i.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newMultiHeadMLP: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newMultiHeadMLP: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if features < 1 || batch < 1 || outputs < 1 {
		return nil, fmt.Errorf("newMultiHeadMLP: features (%v), batch (%v) "+
			"and outputs (%v) must be positive", features, batch, outputs)
	}
	for i, size := range hiddenSizes {
		if size < 1 {
			return nil, fmt.Errorf("newMultiHeadMLP: hidden layer %v must "+
				"have a positive number of units, have(%v)", i, size)
		}
	}

	network := &multiHeadMLP{}
	if err := network.build(features, batch, outputs, g, hiddenSizes, biases,
		init, activations); err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: %v", err)
	}
	return network, nil
}

// build adds the layers of the network to g and runs the forward pass
func (e *multiHeadMLP) build(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) error {
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	// Final linear layer so that the network predicts outputs values
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	allBiases := append(append([]bool{}, biases...), true)
	allActs := append(append([]*Activation{}, activations...), Identity())

	*e = multiHeadMLP{
		g:           g,
		layers:      addfcLayers(g, sizes, allBiases, allActs, init, features, ""),
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: append([]int{}, hiddenSizes...),
		biases:      append([]bool{}, biases...),
		activations: append([]*Activation{}, activations...),
	}

	if _, err := e.fwd(input); err != nil {
		return fmt.Errorf("could not compute forward pass: %v", err)
	}
	return nil
}

// Graph returns the computational graph of the multiHeadMLP.
func (e *multiHeadMLP) Graph() *G.ExprGraph {
	return e.g
}

// Clone clones a multiHeadMLP
func (e *multiHeadMLP) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// CloneWithBatch clones a multiHeadMLP to a new graph with a new input
// batch size. The clone's weights start equal to the weights of e.
func (e *multiHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be "+
			"positive, have(%v)", batchSize)
	}
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, e.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]Layer, len(e.layers))
	for i := range e.layers {
		layers[i] = e.layers[i].CloneTo(graph)
	}

	network := &multiHeadMLP{
		g:           graph,
		layers:      layers,
		input:       input,
		numOutputs:  e.numOutputs,
		numInputs:   e.numInputs,
		batchSize:   batchSize,
		hiddenSizes: e.hiddenSizes,
		biases:      e.biases,
		activations: e.activations,
	}
	if _, err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone: %v", err)
	}

	return network, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *multiHeadMLP) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (e *multiHeadMLP) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs from the network
func (e *multiHeadMLP) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (e *multiHeadMLP) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of a multiHeadMLP to be equal to the
// weights of another NeuralNet
func (dest *multiHeadMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: incompatible networks \n\twant(%v learnables)"+
			" \n\thave(%v learnables)", len(nodes), len(sourceNodes))
	}

	for i, destLearnable := range nodes {
		if err := letData(destLearnable, nodeData(sourceNodes[i])); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Polyak sets the weights of a multiHeadMLP to be a polyak
// average between its existing weights and the weights of another
// NeuralNet: θ ← (1 - τ)θ + τθ'
func (dest *multiHeadMLP) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("polyak: incompatible networks \n\twant(%v "+
			"learnables) \n\thave(%v learnables)", len(nodes),
			len(sourceNodes))
	}

	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
	}
	return nil
}

// Learnables returns the learnable nodes in a multiHeadMLP
func (e *multiHeadMLP) Learnables() G.Nodes {
	if e.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(e.layers))
		for i := range e.layers {
			learnables = append(learnables, e.layers[i].Weights())
			if bias := e.layers[i].Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		e.learnables = G.Nodes(learnables)
	}
	return e.learnables
}

// Model returns the learnables nodes with their gradients.
func (e *multiHeadMLP) Model() []G.ValueGrad {
	if e.model == nil {
		e.model = make([]G.ValueGrad, 0, len(e.Learnables()))
		for _, node := range e.Learnables() {
			e.model = append(e.model, node)
		}
	}
	return e.model
}

// fwd performs the forward pass of the multiHeadMLP on the input
// node
func (e *multiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	if features := input.Shape()[1]; features != e.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", e.numInputs, features)
	}

	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return pred, nil
}

// Output returns the output of the multiHeadMLP.
func (e *multiHeadMLP) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the multiHeadMLP
func (e *multiHeadMLP) Prediction() *G.Node {
	return e.prediction
}

// GobEncode implements the gob.GobEncoder interface
func (e *multiHeadMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	header := []interface{}{
		e.numOutputs,
		e.numInputs,
		e.batchSize,
		e.hiddenSizes,
		e.biases,
		e.activations,
	}
	for _, field := range header {
		if err := enc.Encode(field); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode network "+
				"architecture: %v", err)
		}
	}

	for i, layer := range e.layers {
		if err := enc.Encode(layer); err != nil {
			msg := "gobencode: could not encode layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded
// network is constructed on a new computational graph.
func (e *multiHeadMLP) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var numOutputs, numInputs, batchSize int
	var hiddenSizes []int
	var biases []bool
	var activations []*Activation

	header := []interface{}{
		&numOutputs,
		&numInputs,
		&batchSize,
		&hiddenSizes,
		&biases,
		&activations,
	}
	for _, field := range header {
		if err := dec.Decode(field); err != nil {
			return fmt.Errorf("gobdecode: could not decode network "+
				"architecture: %v", err)
		}
	}

	// Gob decodes empty slices as nil
	if hiddenSizes == nil {
		hiddenSizes = []int{}
		biases = []bool{}
		activations = []*Activation{}
	}

	if len(hiddenSizes) != len(biases) ||
		len(hiddenSizes) != len(activations) {
		return fmt.Errorf("gobdecode: inconsistent network architecture")
	}

	err := e.build(numInputs, batchSize, numOutputs, G.NewGraph(),
		hiddenSizes, biases, G.Zeroes(), activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct network: %v", err)
	}

	for i, layer := range e.layers {
		if err := dec.Decode(layer); err != nil {
			return fmt.Errorf("gobdecode: could not decode layer %v: %v", i,
				err)
		}
	}

	return nil
}

// Load decodes a gob encoded NeuralNet from r, such as one written by
// gob encoding a NeuralNet returned from NewMultiHeadMLP
func Load(r io.Reader) (NeuralNet, error) {
	var net multiHeadMLP
	if err := gob.NewDecoder(r).Decode(&net); err != nil {
		return nil, fmt.Errorf("load: %v", err)
	}
	return &net, nil
}

// Save gob encodes net to w so that it can be restored with Load
func Save(w io.Writer, net NeuralNet) error {
	if err := gob.NewEncoder(w).Encode(net); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}
