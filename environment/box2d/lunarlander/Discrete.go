package lunarlander

import (
	"fmt"

	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Discrete actions
const (
	NoOp int = iota
	FireLeft
	FireMain
	FireRight

	NumActions int = 4
)

// Discrete implements the lunar lander environment with discrete
// actions. An agent flies a ship within a bounded viewport above the
// moon, and should land the ship gently on the landing pad, which is
// always located at the centre of the viewport.
//
// State observations are vectors consisting of the following features
// in the following order:
//
//	1. The x distance from the lander to the centre of the viewport
//	2. The y distance from the lander's legs to the landing pad
//	3. The x velocity of the lander
//	4. The y velocity of the lander
//	5. The angle of the lander, normalized between [-π, π)
//	6. The angular velocity of the lander
//	7. Whether the left leg has contact with the ground
//	8. Whether the right leg has contact with the ground
//
// Actions are enumerated as:
//
//	0. Do nothing
//	1. Fire the left orientation engine
//	2. Fire the main engine
//	3. Fire the right orientation engine
//
// Engines fire at full power.
//
// Any Task used in this struct must have a Starter that returns a
// vector of 3 elements in the following order:
//
//	1. The x position to start at in the Box2D world, in the interval
//	   [0.05 * (ViewportW / Scale), 0.95 * (ViewportW / Scale)].
//	   The default is InitialX.
//	2. The y position to start at in the Box2D world, in the interval
//	   [ViewportH / Scale / 2, InitialY]. The default is InitialY.
//	3. The magnitude of the initial random force applied to the
//	   lander. The default is InitialRandom.
type Discrete struct {
	*lunarLander
}

// NewDiscrete returns a new lunar lander environment with discrete
// actions and its first TimeStep
func NewDiscrete(task environment.Task, discount float64,
	seed uint64) (*Discrete, timestep.TimeStep, error) {
	l, step, err := newLunarLander(task, discount, seed)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newDiscrete: %v", err)
	}
	return &Discrete{l}, step, nil
}

// ActionSpec returns the action specification of the environment
func (d *Discrete) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{float64(NoOp)})
	upperBound := mat.NewVecDense(1, []float64{float64(NumActions - 1)})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Discrete)
}

// Step takes a single environmental step given some action
func (d *Discrete) Step(action *mat.VecDense) (timestep.TimeStep, bool,
	error) {
	if action.Len() != 1 {
		return timestep.TimeStep{}, false, fmt.Errorf("step: actions "+
			"must be 1-dimensional \n\twant(1) \n\thave(%v)", action.Len())
	}

	var throttle []float64
	switch a := int(action.AtVec(0)); a {
	case NoOp:
		throttle = []float64{0.0, 0.0}
	case FireLeft:
		throttle = []float64{0.0, -1.0}
	case FireMain:
		throttle = []float64{1.0, 0.0}
	case FireRight:
		throttle = []float64{0.0, 1.0}
	default:
		return timestep.TimeStep{}, false, fmt.Errorf("step: illegal "+
			"action selection, expected action ϵ [0, 1, 2, 3], received "+
			"action = %v", a)
	}

	return d.lunarLander.step(mat.NewVecDense(2, throttle))
}
