// Package schedule implements annealing schedules for hyperparameters
// such as the exploration rate of an epsilon greedy policy
package schedule

import (
	"fmt"
	"math"
)

// Schedule anneals a value once per episode
type Schedule interface {
	// Value returns the current value
	Value() float64

	// Next advances the schedule by one episode and returns the new
	// value
	Next() float64

	// Reset restarts the schedule from its first value
	Reset()
}

// Exponential decays a value geometrically from Start towards End. The
// value after k episodes is max(End, Start * Decay^k).
type Exponential struct {
	start, end, decay float64
	value             float64
}

// validateRate returns an error if start or end is not a valid
// exploration rate in [0, 1]
func validateRate(start, end float64) error {
	for _, v := range []float64{start, end} {
		if v < 0 || v > 1 {
			return fmt.Errorf("values must be in [0, 1] \n\thave(%v)", v)
		}
	}
	return nil
}

// NewExponential returns a new exponential decay schedule
func NewExponential(start, end, decay float64) (*Exponential, error) {
	if err := validateRate(start, end); err != nil {
		return nil, fmt.Errorf("newExponential: %v", err)
	}
	if decay <= 0 || decay > 1 {
		return nil, fmt.Errorf("newExponential: decay must be in (0, 1] "+
			"\n\thave(%v)", decay)
	}
	if end > start {
		return nil, fmt.Errorf("newExponential: end (%v) must not exceed "+
			"start (%v)", end, start)
	}
	return &Exponential{start: start, end: end, decay: decay, value: start}, nil
}

// Value returns the current value
func (e *Exponential) Value() float64 {
	return e.value
}

// Next advances the schedule by one episode
func (e *Exponential) Next() float64 {
	e.value = math.Max(e.end, e.value*e.decay)
	return e.value
}

// Reset restarts the schedule
func (e *Exponential) Reset() {
	e.value = e.start
}

// Linear anneals a value linearly from Start to End over a number of
// episodes, after which the value stays at End
type Linear struct {
	start, end float64
	episodes   int
	episode    int
}

// NewLinear returns a new linear annealing schedule
func NewLinear(start, end float64, episodes int) (*Linear, error) {
	if err := validateRate(start, end); err != nil {
		return nil, fmt.Errorf("newLinear: %v", err)
	}
	if episodes < 1 {
		return nil, fmt.Errorf("newLinear: episodes must be positive "+
			"\n\thave(%v)", episodes)
	}
	return &Linear{start: start, end: end, episodes: episodes}, nil
}

// Value returns the current value
func (l *Linear) Value() float64 {
	if l.episode >= l.episodes {
		return l.end
	}
	frac := float64(l.episode) / float64(l.episodes)
	return l.start + frac*(l.end-l.start)
}

// Next advances the schedule by one episode
func (l *Linear) Next() float64 {
	if l.episode < l.episodes {
		l.episode++
	}
	return l.Value()
}

// Reset restarts the schedule
func (l *Linear) Reset() {
	l.episode = 0
}

// Constant is a Schedule whose value never changes
type Constant float64

// NewConstant returns a Schedule which always has value value
func NewConstant(value float64) (Constant, error) {
	if err := validateRate(value, value); err != nil {
		return 0, fmt.Errorf("newConstant: %v", err)
	}
	return Constant(value), nil
}

func (c Constant) Value() float64 { return float64(c) }
func (c Constant) Next() float64  { return float64(c) }
func (c Constant) Reset()         {}

// Config describes a Schedule so that it can be read from a
// configuration file. Type is one of "exponential", "linear" or
// "constant".
type Config struct {
	Type     string
	Start    float64
	End      float64
	Decay    float64 // Exponential only
	Episodes int     // Linear only
}

// Create returns the Schedule described by the Config
func (c Config) Create() (Schedule, error) {
	switch c.Type {
	case "exponential", "Exponential":
		return NewExponential(c.Start, c.End, c.Decay)
	case "linear", "Linear":
		return NewLinear(c.Start, c.End, c.Episodes)
	case "constant", "Constant":
		return NewConstant(c.Start)
	default:
		return nil, fmt.Errorf("create: unknown schedule type %q", c.Type)
	}
}
