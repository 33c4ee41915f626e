package environment

import (
	"fmt"

	"github.com/samuelfneumann/lunardqn/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// FunctionEnder ends an episode whenever a predicate on the
// observation returns true. The predicate may close over the
// environment to inspect state that is not part of the observation.
type FunctionEnder struct {
	end     func(*mat.VecDense) bool
	endType timestep.EndType
}

// NewFunctionEnder returns a new FunctionEnder which ends episodes with
// end type endType when f returns true.
func NewFunctionEnder(f func(*mat.VecDense) bool,
	endType timestep.EndType) *FunctionEnder {
	return &FunctionEnder{f, endType}
}

// End implements the Ender interface
func (f *FunctionEnder) End(t *timestep.TimeStep) bool {
	if f.end(t.Observation) {
		t.StepType = timestep.Last
		t.SetEnd(f.endType)
		return true
	}
	return false
}

// IntervalLimit ends episodes whenever one of a set of observation
// features leaves its legal interval
type IntervalLimit struct {
	intervals []r1.Interval
	indices   []int
	endType   timestep.EndType
}

// NewIntervalLimit returns a new IntervalLimit. Feature obsIndices[i]
// must stay within limits[i], otherwise the episode ends with endType.
func NewIntervalLimit(limits []r1.Interval, obsIndices []int,
	endType timestep.EndType) (*IntervalLimit, error) {
	if len(limits) != len(obsIndices) {
		return nil, fmt.Errorf("newIntervalLimit: need one limit per "+
			"observation index \n\twant(%v) \n\thave(%v)", len(obsIndices),
			len(limits))
	}

	return &IntervalLimit{limits, obsIndices, endType}, nil
}

// End implements the Ender interface
func (i *IntervalLimit) End(t *timestep.TimeStep) bool {
	for j, featureIndex := range i.indices {
		feature := t.Observation.AtVec(featureIndex)

		// Boundaries are illegal: a lander with |x| = 1 has left the
		// viewport
		if feature >= i.intervals[j].Max || feature <= i.intervals[j].Min {
			t.StepType = timestep.Last
			t.SetEnd(i.endType)
			return true
		}
	}
	return false
}

// enders ends an episode when any of its Enders does. Enders are
// consulted in order, so earlier Enders decide the EndType.
type enders []Ender

// NewEnders returns an Ender which ends an episode as soon as one of
// the argument Enders does
func NewEnders(e ...Ender) Ender {
	return enders(e)
}

// End implements the Ender interface
func (e enders) End(t *timestep.TimeStep) bool {
	for _, ender := range e {
		if ender.End(t) {
			return true
		}
	}
	return false
}
