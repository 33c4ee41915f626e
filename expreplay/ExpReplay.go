// Package expreplay implements experience replay buffers
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/lunardqn/timestep"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	SampleSize        int
	MaxReplayCapacity int
	MinReplayCapacity int
}

// Validate checks that a Config describes a legal buffer
func (c Config) Validate() error {
	if c.SampleSize < 1 {
		return fmt.Errorf("sample size must be positive, have(%v)",
			c.SampleSize)
	}
	if c.MinReplayCapacity < 1 {
		return fmt.Errorf("minimum capacity must be positive, have(%v)",
			c.MinReplayCapacity)
	}
	if c.MaxReplayCapacity < c.MinReplayCapacity {
		return fmt.Errorf("maximum capacity (%v) must be at least the "+
			"minimum capacity (%v)", c.MaxReplayCapacity, c.MinReplayCapacity)
	}
	if c.MaxReplayCapacity < c.SampleSize {
		return fmt.Errorf("cannot have batch size (%v) > max buffer "+
			"capacity (%v)", c.SampleSize, c.MaxReplayCapacity)
	}
	return nil
}

// Create creates and returns the ExperienceReplayer with the specified
// Config, sampling uniformly at random.
func (c Config) Create(featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	return New(NewUniformSelector(c.SampleSize, seed), c.MinReplayCapacity,
		c.MaxReplayCapacity, featureSize, actionSize)
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer
	Add(t timestep.Transition) error

	// Sample samples a batch of experience from the buffer and returns
	// the batch of states, actions, rewards, discounts and next states.
	// Vectors in a batch are flattened in row major order.
	Sample() ([]float64, []float64, []float64, []float64, []float64, error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of samples required to be in
	// the buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int
}

// cache implements a FIFO ExperienceReplayer. Transitions are stored
// in flat arrays of fixed size. Once full, each new transition
// overwrites the oldest.
type cache struct {
	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64

	// next is the index that the next transition is written to
	next int
	size int

	sampler Selector

	minCapacity int
	maxCapacity int
	featureSize int
	actionSize  int
}

// New creates and returns a new ExperienceReplayer. The sampler
// determines which stored transitions are sampled. The featureSize and
// actionSize parameters define the size of the state and action
// vectors.
func New(sampler Selector, minCapacity, maxCapacity, featureSize,
	actionSize int) (ExperienceReplayer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("new: maxCapacity (%v) must be >= "+
			"minCapacity (%v)", maxCapacity, minCapacity)
	}
	if maxCapacity < sampler.BatchSize() {
		return nil, fmt.Errorf("new: cannot have batch size (%v) > max "+
			"buffer capacity (%v)", sampler.BatchSize(), maxCapacity)
	}
	if featureSize < 1 || actionSize < 1 {
		return nil, fmt.Errorf("new: feature size (%v) and action size (%v) "+
			"must be positive", featureSize, actionSize)
	}

	return &cache{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		discountCache:  make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),

		sampler: sampler,

		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,
	}, nil
}

// String returns the string representation of the cache
func (c *cache) String() string {
	return fmt.Sprintf("{FIFO buffer: %v/%v transitions, batch size %v}",
		c.size, c.maxCapacity, c.BatchSize())
}

// BatchSize returns the number of samples sampled using Sample()
func (c *cache) BatchSize() int {
	return c.sampler.BatchSize()
}

// Capacity returns the current number of elements in the cache that
// are available for sampling
func (c *cache) Capacity() int {
	return c.size
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the cache
func (c *cache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the minimum number of elements required in the
// cache before sampling is allowed
func (c *cache) MinCapacity() int {
	return c.minCapacity
}

// Add adds a transition to the cache, overwriting the oldest
// transition if the cache is full
func (c *cache) Add(t timestep.Transition) error {
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)\n\thave(%v)",
			c.featureSize, t.State.Len())
	}
	if t.Action.Len() != c.actionSize {
		return fmt.Errorf("add: invalid action size \n\twant(%v)\n\thave(%v)",
			c.actionSize, t.Action.Len())
	}

	index := c.next

	stateInd := index * c.featureSize
	for i := 0; i < c.featureSize; i++ {
		c.stateCache[stateInd+i] = t.State.AtVec(i)
		c.nextStateCache[stateInd+i] = t.NextState.AtVec(i)
	}

	actionInd := index * c.actionSize
	for i := 0; i < c.actionSize; i++ {
		c.actionCache[actionInd+i] = t.Action.AtVec(i)
	}

	c.rewardCache[index] = t.Reward
	c.discountCache[index] = t.Discount

	c.next = (c.next + 1) % c.maxCapacity
	if c.size < c.maxCapacity {
		c.size++
	}

	return nil
}

// Sample samples and returns a batch of transitions from the replay
// buffer
func (c *cache) Sample() ([]float64, []float64, []float64, []float64,
	[]float64, error) {
	if c.Capacity() == 0 {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errEmptyCache,
		}
		return nil, nil, nil, nil, nil, err
	}
	if c.Capacity() < c.MinCapacity() {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
		return nil, nil, nil, nil, nil, err
	}

	indices := c.sampler.choose(c.size)
	batch := len(indices)

	stateBatch := make([]float64, batch*c.featureSize)
	nextStateBatch := make([]float64, batch*c.featureSize)
	actionBatch := make([]float64, batch*c.actionSize)
	rewardBatch := make([]float64, batch)
	discountBatch := make([]float64, batch)

	for i, index := range indices {
		batchInd, expInd := i*c.featureSize, index*c.featureSize
		copy(stateBatch[batchInd:batchInd+c.featureSize],
			c.stateCache[expInd:expInd+c.featureSize])
		copy(nextStateBatch[batchInd:batchInd+c.featureSize],
			c.nextStateCache[expInd:expInd+c.featureSize])

		batchInd, expInd = i*c.actionSize, index*c.actionSize
		copy(actionBatch[batchInd:batchInd+c.actionSize],
			c.actionCache[expInd:expInd+c.actionSize])

		rewardBatch[i] = c.rewardCache[index]
		discountBatch[i] = c.discountCache[index]
	}

	return stateBatch, actionBatch, rewardBatch, discountBatch,
		nextStateBatch, nil
}
