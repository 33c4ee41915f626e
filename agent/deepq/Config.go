package deepq

import (
	"fmt"

	"github.com/samuelfneumann/lunardqn/agent"
	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/expreplay"
	"github.com/samuelfneumann/lunardqn/initwfn"
	"github.com/samuelfneumann/lunardqn/network"
	"github.com/samuelfneumann/lunardqn/solver"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	PolicyLayers []int                 // Layer sizes in neural net
	Biases       []bool                // Whether each layer should have a bias
	Activations  []*network.Activation // Activation of each layer
	Solver       *solver.Solver        // Solver for learning weights
	InitWFn      *initwfn.InitWFn      // Weight initialization

	Epsilon float64 // Behaviour policy epsilon

	// Experience replay parameters
	ExpReplay expreplay.Config

	// Number of environment steps between gradient steps
	LearnEvery int

	// Target net updates
	Tau                  float64 // Polyak averaging constant
	TargetUpdateInterval int     // Gradient steps between target updates
}

// DefaultConfig returns the canonical configuration for the lunar
// lander: two hidden layers of 64 ReLU units, Adam with step size
// 5e-4, a replay buffer of 100,000 transitions sampled in batches of
// 64, and a gradient step every 4 environment steps.
func DefaultConfig() Config {
	const batch = 64

	adam, err := solver.NewDefaultAdam(5e-4, batch)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		PolicyLayers: []int{64, 64},
		Biases:       []bool{true, true},
		Activations:  []*network.Activation{network.ReLU(), network.ReLU()},
		Solver:       adam,
		InitWFn:      initwfn.NewGlorotU(1.0),
		Epsilon:      1.0,
		ExpReplay: expreplay.Config{
			SampleSize:        batch,
			MaxReplayCapacity: 100000,
			MinReplayCapacity: batch,
		},
		LearnEvery:           4,
		Tau:                  1.0,
		TargetUpdateInterval: 250,
	}
}

// BatchSize returns the batch size of the agent constructed using this
// Config
func (c Config) BatchSize() int {
	return c.ExpReplay.SampleSize
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if len(c.PolicyLayers) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.PolicyLayers), len(c.Biases))
	}

	if len(c.PolicyLayers) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations\n\t"+
			"want(%v)\n\thave(%v)", len(c.PolicyLayers), len(c.Activations))
	}

	for i, act := range c.Activations {
		if act == nil {
			return fmt.Errorf("validate: activation %v is nil", i)
		}
	}

	if c.Solver == nil {
		return fmt.Errorf("validate: no solver specified")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer specified")
	}

	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("validate: epsilon must be in [0, 1] \n\t"+
			"have(%v)", c.Epsilon)
	}

	if err := c.ExpReplay.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}

	if c.LearnEvery < 1 {
		return fmt.Errorf("validate: learning must happen at positive step "+
			"intervals \n\twant(>0) \n\thave(%v)", c.LearnEvery)
	}

	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("validate: polyak constant must be in (0, 1] "+
			"\n\thave(%v)", c.Tau)
	}

	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("validate: target networks must be updated at "+
			"positive timestep intervals \n\twant(>0) \n\thave(%v)",
			c.TargetUpdateInterval)
	}

	return nil
}

// CreateAgent creates a new DeepQ agent based on the configuration
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	return New(env, c, seed)
}
