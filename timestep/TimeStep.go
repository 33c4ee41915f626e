// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes how an episode ended. Episodes that reach a
// terminal state should not bootstrap from the next state's value,
// while episodes that are cut off by a step limit should.
type EndType int

const (
	None EndType = iota
	TerminalStateReached
	Timeout
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Timeout:
		return "Timeout"
	default:
		return "None"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	EndType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
}

// New returns a new TimeStep. The EndType of the TimeStep is None
// until it is set with SetEnd.
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{
		StepType:    t,
		EndType:     None,
		Reward:      r,
		Discount:    d,
		Observation: o,
		Number:      n,
	}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd sets the ending type of the TimeStep
func (t *TimeStep) SetEnd(e EndType) {
	t.EndType = e
}

// TerminalStateReached returns whether the episode ended because a
// terminal state of the environment was reached
func (t *TimeStep) TerminalStateReached() bool {
	return t.Last() && t.EndType == TerminalStateReached
}

// Timeout returns whether the episode was cut off
func (t *TimeStep) Timeout() bool {
	return t.Last() && t.EndType == Timeout
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  End: %v  |  Reward:  %.2f  |  " +
		"Discount: %.2f  |  Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.EndType, t.Reward, t.Discount,
		t.Number)
}
