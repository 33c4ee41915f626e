// Package solver implements functionality to wrap Gorgonia Solvers
// so that they can be JSON serialized into configuration files.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/samuelfneumann/lunardqn/utils/jsonutils"
	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
	Vanilla Type = "Vanilla"
)

var registered = map[string]reflect.Type{
	string(Adam):    reflect.TypeOf(AdamConfig{}),
	string(RMSProp): reflect.TypeOf(RMSPropConfig{}),
	string(Vanilla): reflect.TypeOf(VanillaConfig{}),
}

// Config implements a Gorgonia Solver configuration and can be used to
// create the Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver
	Type() Type
	Validate() error
}

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled and
// unmarshalled.
type Solver struct {
	G.Solver
	Config Config
}

// New returns a new Solver described by c
func New(c Config) (*Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	return &Solver{Solver: c.Create(), Config: c}, nil
}

// Type returns the type of the wrapped Solver
func (s *Solver) Type() Type {
	return s.Config.Type()
}

// Reset recreates the wrapped Solver, discarding any accumulated state
// such as moment estimates
func (s *Solver) Reset() {
	s.Solver = s.Config.Create()
}

// String implements the fmt.Stringer interface
func (s *Solver) String() string {
	return fmt.Sprintf("{%v Solver: %+v}", s.Type(), s.Config)
}

// MarshalJSON implements the json.Marshaler interface
func (s *Solver) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   Type
		Config Config
	}{s.Type(), s.Config})
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	config, _, err := jsonutils.UnmarshalTyped(data, "Type", "Config",
		registered)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	solver, err := New(config.(Config))
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	*s = *solver
	return nil
}

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	StepSize float64
	Epsilon  float64 // Smoothing factor
	Beta1    float64
	Beta2    float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

// NewDefaultAdam returns a new Adam Solver with default hyperparameters
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return New(AdamConfig{
		StepSize: stepSize,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
		Batch:    batchSize,
	})
}

func (a AdamConfig) Type() Type { return Adam }

// Validate checks that the hyperparameters are legal
func (a AdamConfig) Validate() error {
	if err := validateCommon(a.StepSize, a.Batch); err != nil {
		return err
	}
	if a.Beta1 < 0 || a.Beta1 >= 1 || a.Beta2 < 0 || a.Beta2 >= 1 {
		return fmt.Errorf("betas must be in [0, 1), have(β1 = %v, β2 = %v)",
			a.Beta1, a.Beta2)
	}
	return nil
}

// Create returns a new Gorgonia Adam Solver as described by the
// AdamConfig
func (a AdamConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(a.StepSize),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
		G.WithBatchSize(float64(a.Batch)),
	}
	if a.Clip > 0 {
		opts = append(opts, G.WithClip(a.Clip))
	}
	return G.NewAdamSolver(opts...)
}

// RMSPropConfig describes a configuration of the RMSProp solver
type RMSPropConfig struct {
	StepSize float64
	Epsilon  float64
	Rho      float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

func (r RMSPropConfig) Type() Type { return RMSProp }

// Validate checks that the hyperparameters are legal
func (r RMSPropConfig) Validate() error {
	if err := validateCommon(r.StepSize, r.Batch); err != nil {
		return err
	}
	if r.Rho < 0 || r.Rho >= 1 {
		return fmt.Errorf("rho must be in [0, 1), have(%v)", r.Rho)
	}
	return nil
}

// Create returns a new Gorgonia RMSProp Solver as described by the
// RMSPropConfig
func (r RMSPropConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(r.StepSize),
		G.WithEps(r.Epsilon),
		G.WithRho(r.Rho),
		G.WithBatchSize(float64(r.Batch)),
	}
	if r.Clip > 0 {
		opts = append(opts, G.WithClip(r.Clip))
	}
	return G.NewRMSPropSolver(opts...)
}

// VanillaConfig describes a configuration of the vanilla gradient
// descent solver.
type VanillaConfig struct {
	StepSize float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

func (v VanillaConfig) Type() Type { return Vanilla }

// Validate checks that the hyperparameters are legal
func (v VanillaConfig) Validate() error {
	return validateCommon(v.StepSize, v.Batch)
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(v.StepSize),
		G.WithBatchSize(float64(v.Batch)),
	}
	if v.Clip > 0 {
		opts = append(opts, G.WithClip(v.Clip))
	}
	return G.NewVanillaSolver(opts...)
}

func validateCommon(stepSize float64, batch int) error {
	if stepSize <= 0 {
		return fmt.Errorf("step size must be positive, have(%v)", stepSize)
	}
	if batch < 1 {
		return fmt.Errorf("batch size must be positive, have(%v)", batch)
	}
	return nil
}
