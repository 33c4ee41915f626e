package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector chooses the indices of the buffer at which data should be
// sampled
type Selector interface {
	// choose selects BatchSize indices from [0, size)
	choose(size int) []int

	// BatchSize returns the number of indices that will be selected
	BatchSize() int
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly, with replacement
type uniformSelector struct {
	samples int
	rng     *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly from an experience replay buffer
func NewUniformSelector(samples int, seed uint64) Selector {
	return &uniformSelector{
		samples: samples,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// BatchSize returns the number of samples in a batch drawn from the
// buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects a number of indices at which to draw data from the
// buffer
func (u *uniformSelector) choose(size int) []int {
	selected := make([]int, u.samples)
	for i := range selected {
		selected[i] = u.rng.Intn(size)
	}
	return selected
}
