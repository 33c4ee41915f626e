// Package initwfn implements functionality to wrap Gorgonia InitWFn
// so that they can be JSON serialized into configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/samuelfneumann/lunardqn/utils/jsonutils"
	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
	Zeroes   Type = "Zeroes"
)

var registered = map[string]reflect.Type{
	string(GlorotU):  reflect.TypeOf(GlorotUConfig{}),
	string(GlorotN):  reflect.TypeOf(GlorotNConfig{}),
	string(HeU):      reflect.TypeOf(HeUConfig{}),
	string(HeN):      reflect.TypeOf(HeNConfig{}),
	string(Gaussian): reflect.TypeOf(GaussianConfig{}),
	string(Uniform):  reflect.TypeOf(UniformConfig{}),
	string(Zeroes):   reflect.TypeOf(ZeroesConfig{}),
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled and
// unmarshalled.
type InitWFn struct {
	initWFn G.InitWFn
	Config  Config
}

// New returns a new InitWFn described by c
func New(c Config) *InitWFn {
	return &InitWFn{initWFn: c.Create(), Config: c}
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// Type returns the type of the wrapped InitWFn
func (i *InitWFn) Type() Type {
	return i.Config.Type()
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %+v}", i.Type(), i.Config)
}

// MarshalJSON implements the json.Marshaler interface
func (i *InitWFn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   Type
		Config Config
	}{i.Type(), i.Config})
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	config, _, err := jsonutils.UnmarshalTyped(data, "Type", "Config",
		registered)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	*i = *New(config.(Config))
	return nil
}

// GlorotUConfig configures Glorot uniform initialization
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) *InitWFn {
	return New(GlorotUConfig{Gain: gain})
}

func (g GlorotUConfig) Type() Type        { return GlorotU }
func (g GlorotUConfig) Create() G.InitWFn { return G.GlorotU(g.Gain) }

// GlorotNConfig configures Glorot normal initialization
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) *InitWFn {
	return New(GlorotNConfig{Gain: gain})
}

func (g GlorotNConfig) Type() Type        { return GlorotN }
func (g GlorotNConfig) Create() G.InitWFn { return G.GlorotN(g.Gain) }

// HeUConfig configures He uniform initialization
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64) *InitWFn {
	return New(HeUConfig{Gain: gain})
}

func (h HeUConfig) Type() Type        { return HeU }
func (h HeUConfig) Create() G.InitWFn { return G.HeU(h.Gain) }

// HeNConfig configures He normal initialization
type HeNConfig struct {
	Gain float64
}

// NewHeN returns a new He normal weight initializer
func NewHeN(gain float64) *InitWFn {
	return New(HeNConfig{Gain: gain})
}

func (h HeNConfig) Type() Type        { return HeN }
func (h HeNConfig) Create() G.InitWFn { return G.HeN(h.Gain) }

// GaussianConfig configures initialization from a normal distribution
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new Gaussian weight initializer
func NewGaussian(mean, stddev float64) *InitWFn {
	return New(GaussianConfig{Mean: mean, StdDev: stddev})
}

func (g GaussianConfig) Type() Type        { return Gaussian }
func (g GaussianConfig) Create() G.InitWFn { return G.Gaussian(g.Mean, g.StdDev) }

// UniformConfig configures initialization from a uniform distribution
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) *InitWFn {
	return New(UniformConfig{Low: low, High: high})
}

func (u UniformConfig) Type() Type        { return Uniform }
func (u UniformConfig) Create() G.InitWFn { return G.Uniform(u.Low, u.High) }

// ZeroesConfig configures zero initialization
type ZeroesConfig struct{}

// NewZeroes returns a new zero weight initializer
func NewZeroes() *InitWFn {
	return New(ZeroesConfig{})
}

func (z ZeroesConfig) Type() Type        { return Zeroes }
func (z ZeroesConfig) Create() G.InitWFn { return G.Zeroes() }
