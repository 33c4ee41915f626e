package tracker

import (
	"fmt"

	ts "github.com/samuelfneumann/lunardqn/timestep"
)

// Return tracks and saves the episodic return in an experiment. When
// an environment returns a TimeStep, this Tracker will extract the
// reward and accumulate the return for each episode in the experiment.
//
// An episode must finish for this Tracker to save its return.
type Return struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker which saves to
// filename
func NewReturn(filename string) *Return {
	return &Return{lastTimeStep: -1, filename: filename}
}

// Track tracks the reward seen on a timestep. When the last timestep
// of an episode is tracked, the episodic return is cached and the
// return of the next episode is accumulated separately.
//
// Track panics if it is called for non-sequential timesteps
func (r *Return) Track(step ts.TimeStep) {
	if r.lastTimeStep+1 != step.Number {
		panic(fmt.Sprintf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			r.lastTimeStep, step.Number))
	}

	r.currentReturn += step.Reward
	r.lastTimeStep = step.Number

	if step.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.currentReturn = 0.0
		r.lastTimeStep = -1
	}
}

// Returns returns the returns of all finished episodes
func (r *Return) Returns() []float64 {
	return r.episodeReturns
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}
