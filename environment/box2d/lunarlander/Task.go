package lunarlander

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Rewards for the Land task
const (
	CrashReward   float64 = -100.0
	RestReward    float64 = 100.0
	MainFuelCost  float64 = 0.30
	SideFuelCost  float64 = 0.03
	LegContactPts float64 = 10.0
)

// Land implements the task of landing the ship gently on the landing
// pad. Rewards are the change in a shaping potential, which increases
// as the ship gets closer to the landing pad, slower, more upright,
// and as its legs touch the ground. Each frame of firing the main
// engine costs 0.3 and each frame of firing an orientation engine
// costs 0.03.
//
// Episodes end in a terminal state with reward -100 if the hull of
// the ship touches the ground or the ship leaves the viewport along
// the x axis, and with reward +100 if the ship comes to rest. Episodes
// are cut off after a step limit.
type Land struct {
	environment.Starter
	stepLimit *environment.StepLimit
	ender     environment.Ender

	prevShaping *float64

	env *lunarLander
}

// NewLand returns a new Land task with episodes cut off at cutoff
// steps
func NewLand(s environment.Starter, cutoff int) *Land {
	return &Land{Starter: s, stepLimit: environment.NewStepLimit(cutoff)}
}

// NewDefaultLand returns a new Land task with the default starting
// position and random force, seeded with seed
func NewDefaultLand(seed uint64, cutoff int) *Land {
	s := environment.NewUniformStarter([]r1.Interval{
		{Min: InitialX, Max: InitialX},
		{Min: InitialY, Max: InitialY},
		{Min: InitialRandom, Max: InitialRandom},
	}, seed)
	return NewLand(s, cutoff)
}

// registerEnv registers the simulation that the Task uses to compute
// rewards and episode ends
func (l *Land) registerEnv(env *lunarLander) {
	l.env = env

	rest := environment.NewFunctionEnder(func(*mat.VecDense) bool {
		return env.IsGameOver() || !env.IsAwake()
	}, timestep.TerminalStateReached)

	// NewIntervalLimit only errors on mismatched lengths
	outOfBounds, err := environment.NewIntervalLimit(
		[]r1.Interval{{Min: -1.0, Max: 1.0}},
		[]int{0},
		timestep.TerminalStateReached,
	)
	if err != nil {
		panic(fmt.Sprintf("registerEnv: %v", err))
	}

	l.ender = environment.NewEnders(rest, outOfBounds, l.stepLimit)
}

// reset resets the reward shaping between episodes
func (l *Land) reset() {
	l.prevShaping = nil
}

// End determines whether the episode should end. If so, the TimeStep
// is modified to be the last in the episode.
func (l *Land) End(t *timestep.TimeStep) bool {
	if l.ender == nil {
		return l.stepLimit.End(t)
	}
	return l.ender.End(t)
}

// AtGoal returns whether the lander is resting with both legs on the
// ground
func (l *Land) AtGoal(mat.Matrix) bool {
	if l.env == nil {
		return false
	}
	leg1, leg2 := l.env.GroundContact()
	return leg1 && leg2 && !l.env.IsAwake()
}

// GetReward returns the reward for transitioning to nextState
func (l *Land) GetReward(_, _, nextState mat.Vector) float64 {
	state := make([]float64, nextState.Len())
	for i := range state {
		state[i] = nextState.AtVec(i)
	}

	shaping := -100*math.Hypot(state[0], state[1]) -
		100*math.Hypot(state[2], state[3]) -
		100*math.Abs(state[4]) +
		LegContactPts*state[6] +
		LegContactPts*state[7]

	reward := 0.0
	if l.prevShaping != nil {
		reward = shaping - *l.prevShaping
	}
	l.prevShaping = &shaping

	if l.env == nil {
		return reward
	}

	// Less fuel spent is better
	reward -= l.env.MPower() * MainFuelCost
	reward -= l.env.SPower() * SideFuelCost

	if l.env.IsGameOver() || math.Abs(state[0]) >= 1.0 {
		return CrashReward
	} else if !l.env.IsAwake() {
		return RestReward
	}
	return reward
}

// RewardSpec returns the reward specification of the task
func (l *Land) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{math.Inf(-1)})
	upperBound := mat.NewVecDense(1, []float64{math.Inf(1)})

	return environment.NewSpec(shape, environment.Reward, lowerBound,
		upperBound, environment.Continuous)
}
