// Package network implements feed forward neural networks as
// Gorgonia computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a neural network function approximator which
// populates a computational graph. A NeuralNet has no VM of its own,
// an external VM should run the graph before reading the Output.
type NeuralNet interface {
	Graph() *G.ExprGraph

	// Clone clones the NeuralNet to a new computational graph
	Clone() (NeuralNet, error)

	// CloneWithBatch clones the NeuralNet to a new computational
	// graph with a new input batch size
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the values of the input node, a batch of
	// observations flattened in row major order
	SetInput([]float64) error

	// Set copies the weights of the argument NeuralNet
	Set(NeuralNet) error

	// Polyak sets the weights to a Polyak average between the current
	// weights and those of the argument NeuralNet
	Polyak(NeuralNet, float64) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Output returns the value of the prediction from the last run of
	// the computational graph
	Output() G.Value

	// Prediction returns the node that holds the network's prediction
	Prediction() *G.Node
}
