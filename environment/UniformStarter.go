package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting states uniformly from a box
type UniformStarter struct {
	features int
	seed     uint64
	rand     *distmv.Uniform
}

// NewUniformStarter returns a Starter which samples starting states
// uniformly from the argument bounds, one interval per feature
func NewUniformStarter(bounds []r1.Interval, seed uint64) UniformStarter {
	source := rand.NewSource(seed)
	rand := distmv.NewUniform(bounds, source)

	return UniformStarter{len(bounds), seed, rand}
}

// Start returns a starting state vector
func (u UniformStarter) Start() *mat.VecDense {
	return mat.NewVecDense(u.features, u.rand.Rand(nil))
}
