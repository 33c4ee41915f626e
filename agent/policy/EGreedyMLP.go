// Package policy implements action selection policies which use
// neural network function approximation with Gorgonia.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/lunardqn/agent"
	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/network"
	"github.com/samuelfneumann/lunardqn/utils/floatutils"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// MultiHeadEGreedyMLP implements an epsilon greedy policy using a
// feedforward neural network/MLP. Given an environment with N actions,
// the neural network will produce N outputs, each predicting the
// value of a distinct action.
//
// MultiHeadEGreedyMLP simply populates a gorgonia.ExprGraph with
// the neural network function approximator and selects actions
// based on the output of this neural network. The struct does not
// have a vm of its own. An external VM should be used to run the
// computational graph of the policy externally. The VM should always
// be run before selecting an action with the policy:
//
//	Set up VM with policy's graph:	vm = NewTapeMachine(policy.Network().Graph())
//	Set input to policy's network:	policy.Network().SetInput(obs)
//	Predict the action values:	vm.RunAll()
//	Select an action:		actions, values, err = policy.SelectAction()
//	Reset the VM:			vm.Reset()
type MultiHeadEGreedyMLP struct {
	net     network.NeuralNet
	epsilon float64

	rng  *rand.Rand
	seed uint64
}

// NewMultiHeadEGreedyMLP creates and returns a new MultiHeadEGreedyMLP
// which selects between the discrete actions of env. The hiddenSizes
// parameter defines the number of nodes in each hidden layer. The
// biases parameter outlines which layers should include bias units.
// The activations parameter determines the activation function for
// each layer. The batch parameter determines the number of inputs in
// a batch.
//
// A final linear layer is always added so that the network has one
// output per environmental action. A linear policy can be created by
// setting hiddenSizes, biases and activations to empty slices.
func NewMultiHeadEGreedyMLP(epsilon float64, env environment.Environment,
	batch int, g *G.ExprGraph, hiddenSizes []int, biases []bool,
	init G.InitWFn, activations []*network.Activation,
	seed uint64) (*MultiHeadEGreedyMLP, error) {
	if epsilon < 0 || epsilon > 1 {
		return nil, fmt.Errorf("newMultiHeadEGreedyMLP: epsilon must be in "+
			"[0, 1], have(%v)", epsilon)
	}

	numActions, err := env.ActionSpec().NumActions()
	if err != nil {
		return nil, fmt.Errorf("newMultiHeadEGreedyMLP: %v", err)
	}
	features := env.ObservationSpec().Shape.Len()

	net, err := network.NewMultiHeadMLP(features, batch, numActions, g,
		hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("newMultiHeadEGreedyMLP: could not create "+
			"policy: %v", err)
	}

	return &MultiHeadEGreedyMLP{
		net:     net,
		epsilon: epsilon,
		rng:     rand.New(rand.NewSource(seed)),
		seed:    seed,
	}, nil
}

// Network returns the neural network function approximator that the
// policy uses.
func (e *MultiHeadEGreedyMLP) Network() network.NeuralNet {
	return e.net
}

// ClonePolicyWithBatch clones a MultiHeadEGreedyMLP with a new input
// batch size. The clone uses a new computational graph.
func (e *MultiHeadEGreedyMLP) ClonePolicyWithBatch(
	batchSize int) (agent.EGreedyNNPolicy, error) {
	net, err := e.net.CloneWithBatch(batchSize)
	if err != nil {
		msg := "clonePolicyWithBatch: could not clone policy: %v"
		return nil, fmt.Errorf(msg, err)
	}

	return &MultiHeadEGreedyMLP{
		net:     net,
		epsilon: e.epsilon,
		rng:     rand.New(rand.NewSource(e.seed)),
		seed:    e.seed,
	}, nil
}

// SetEpsilon sets the value for epsilon in the epsilon greedy policy.
func (e *MultiHeadEGreedyMLP) SetEpsilon(ε float64) {
	e.epsilon = ε
}

// Epsilon gets the value of epsilon for the policy.
func (e *MultiHeadEGreedyMLP) Epsilon() float64 {
	return e.epsilon
}

// SelectAction selects an action for each observation in the batch
// according to the action values generated from the last run of the
// computational graph. The selected actions are returned along with
// their approximated values.
func (e *MultiHeadEGreedyMLP) SelectAction() ([]int, []float64, error) {
	output := e.net.Output()
	if output == nil {
		return nil, nil, fmt.Errorf("selectAction: vm must be run before " +
			"selecting an action")
	}

	values := output.Data().([]float64)
	numActions := e.net.Outputs()

	actions := make([]int, e.net.BatchSize())
	actionValues := make([]float64, len(actions))
	for i := range actions {
		row := values[i*numActions : (i+1)*numActions]

		var action int
		if e.rng.Float64() < e.epsilon {
			action = e.rng.Intn(numActions)
		} else {
			// Break ties between max-valued actions uniformly
			_, maxIndices := floatutils.MaxSlice(row)
			action = maxIndices[e.rng.Intn(len(maxIndices))]
		}

		actions[i] = action
		actionValues[i] = row[action]
	}

	return actions, actionValues, nil
}
