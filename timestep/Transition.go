package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition implements a single SARSA tuple (S, A, R, γ, S', A').
// Discount is the discount used to bootstrap from the value of
// NextState, which is 0 if NextState is terminal.
type Transition struct {
	State      *mat.VecDense
	Action     *mat.VecDense
	Reward     float64
	Discount   float64
	NextState  *mat.VecDense
	NextAction *mat.VecDense
}

// NewTransition creates a new Transition from the timestep the action
// was taken at and the timestep that the action led to. If next ended
// the episode in a terminal state, the bootstrap discount is 0.
// NextAction may be nil for off-policy methods.
func NewTransition(step TimeStep, action *mat.VecDense, next TimeStep,
	nextAction *mat.VecDense) Transition {
	discount := next.Discount
	if next.TerminalStateReached() {
		discount = 0.0
	}

	return Transition{
		State:      step.Observation,
		Action:     action,
		Reward:     next.Reward,
		Discount:   discount,
		NextState:  next.Observation,
		NextAction: nextAction,
	}
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | S: %v  A: %v  R: %.2f  γ: %.2f  S': %v",
		mat.Formatted(t.State.T()), mat.Formatted(t.Action.T()), t.Reward,
		t.Discount, mat.Formatted(t.NextState.T()))
}
