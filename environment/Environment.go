// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"github.com/samuelfneumann/lunardqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode should end
type Ender interface {
	// End determines whether an episode should end on the argument
	// TimeStep. If so, End sets the StepType and EndType of the
	// TimeStep and returns true.
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme and episode termination for taking
// actions in some environment, as well as the distribution of starting
// states.
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for taking action a in state and
	// transitioning to nextState
	GetReward(state, a, nextState mat.Vector) float64

	// AtGoal returns whether the argument state is a goal state
	AtGoal(state mat.Matrix) bool

	// RewardSpec returns the reward specification of the Task
	RewardSpec() Spec
}

// Environment implements a simualted environment, which includes a Task
// to complete
type Environment interface {
	Task

	// Reset resets the environment between episodes and returns the
	// first TimeStep of the new episode
	Reset() (timestep.TimeStep, error)

	// Step takes an action in the environment, returning the next
	// TimeStep and whether it is the last in the episode
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec

	// LastTimeStep returns the most recent TimeStep produced by the
	// Environment
	LastTimeStep() timestep.TimeStep
}
