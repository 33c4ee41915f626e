// Package agent defines the interfaces that agents implement
package agent

import (
	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/network"
	"github.com/samuelfneumann/lunardqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Step performs a single update to the learner
	Step() error

	// Observe records that an action lead to some timestep
	Observe(action mat.Vector, nextObs timestep.TimeStep) error

	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. For a given agent, the
// Policy and Learner should share weights so that any changes the
// learner makes to the weights are reflected in the actions the Policy
// chooses.
type Policy interface {
	SelectAction(t timestep.TimeStep) (*mat.VecDense, error)
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Explorer is an Agent whose amount of exploration can be adjusted,
// for example by an annealing schedule
type Explorer interface {
	Agent
	SetEpsilon(float64)
	Epsilon() float64
}

// EGreedyNNPolicy implements an epsilon greedy policy using neural
// network function approximation. The policy has no VM of its own.
// The computational graph of its Network must be run before calling
// SelectAction, which selects an action from the last predicted
// action values.
type EGreedyNNPolicy interface {
	Network() network.NeuralNet
	ClonePolicyWithBatch(int) (EGreedyNNPolicy, error)

	// SelectAction returns the selected action and its estimated
	// value, for each observation in the batch
	SelectAction() ([]int, []float64, error)

	SetEpsilon(float64)
	Epsilon() float64
}

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the config describes
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error
}
