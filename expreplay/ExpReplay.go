// Package expreplay implements experience replay buffers of dispatch
// transitions.
//
// Buffers store transitions in a fixed-size ring: once full, adding a
// transition evicts the oldest one. Batches are drawn by a Selector.
package expreplay

import (
	"fmt"

	ts "github.com/samuelfneumann/matchradius/timestep"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	SampleMethod      SelectorType
	SampleSize        int
	MaxReplayCapacity int
	MinReplayCapacity int
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(seed uint64) (ExperienceReplayer, error) {
	sampler, err := CreateSelector(c.SampleMethod, c.SampleSize, seed)
	if err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}
	return New(sampler, c.MinReplayCapacity, c.MaxReplayCapacity)
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, evicting the oldest
	// transition if the buffer is full
	Add(t ts.Transition) error

	// AddBatch adds every row of a batch of transitions in order
	AddBatch(b ts.Batch) error

	// Sample samples a batch of BatchSize() transitions
	Sample() (ts.Batch, error)

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

// fifoCache implements a concrete ExperienceReplayer where elements
// are removed from the buffer first-in-first-out, one at a time, as
// new elements are added.
type fifoCache struct {
	transitions []ts.Transition

	// Position of the oldest transition and number of stored
	// transitions. Transition i in insertion order is stored at
	// (head + i) % maxCapacity.
	head int
	size int

	// Outlines how data is sampled
	sampler Selector

	minCapacity int
	maxCapacity int
}

// New creates and returns a new ExperienceReplayer. The sampler
// determines how data is sampled from the replay buffer.
func New(sampler Selector, minCapacity,
	maxCapacity int) (ExperienceReplayer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("new: maxCapacity (%v) must be >= "+
			"minCapacity (%v)", maxCapacity, minCapacity)
	}
	if sampler.BatchSize() < 1 {
		return nil, fmt.Errorf("new: batch size must be > 0")
	}
	if maxCapacity < sampler.BatchSize() {
		return nil, fmt.Errorf("new: cannot have batch size(%v) > max "+
			"buffer capacity (%v)", sampler.BatchSize(), maxCapacity)
	}

	return &fifoCache{
		transitions: make([]ts.Transition, maxCapacity),
		sampler:     sampler,
		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
	}, nil
}

// String returns the string representation of the fifoCache
func (c *fifoCache) String() string {
	return fmt.Sprintf("{fifoCache capacity: %v/%v, sampler: %T}", c.size,
		c.maxCapacity, c.sampler)
}

// Add adds a transition to the fifoCache
func (c *fifoCache) Add(t ts.Transition) error {
	if t.Action < 0 {
		return &ExpReplayError{
			Op:  "add",
			Err: fmt.Errorf("negative action %v", t.Action),
		}
	}

	if c.size < c.maxCapacity {
		c.transitions[(c.head+c.size)%c.maxCapacity] = t
		c.size++
		return nil
	}

	// Full: overwrite the oldest transition
	c.transitions[c.head] = t
	c.head = (c.head + 1) % c.maxCapacity
	return nil
}

// AddBatch adds all transitions of a batch to the fifoCache
func (c *fifoCache) AddBatch(b ts.Batch) error {
	n := b.Len()
	if len(b.Actions) != n || len(b.Rewards) != n || len(b.NextStates) != n {
		return &ExpReplayError{
			Op:  "addBatch",
			Err: fmt.Errorf("batch slices of unequal length"),
		}
	}

	for i := 0; i < n; i++ {
		if err := c.Add(b.At(i)); err != nil {
			return err
		}
	}
	return nil
}

// at returns the i-th oldest transition in the cache
func (c *fifoCache) at(i int) ts.Transition {
	return c.transitions[(c.head+i)%c.maxCapacity]
}

// Sample samples and returns a batch of transitions from the replay
// buffer.
func (c *fifoCache) Sample() (ts.Batch, error) {
	if c.Capacity() == 0 {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errEmptyCache,
		}
		return ts.Batch{}, err
	}
	if c.Capacity() < c.MinCapacity() {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
		return ts.Batch{}, err
	}

	indices := c.sampler.choose(c.Capacity())

	batch := ts.Batch{
		States:     make([]ts.State, 0, len(indices)),
		Actions:    make([]int, 0, len(indices)),
		Rewards:    make([]float64, 0, len(indices)),
		NextStates: make([]ts.State, 0, len(indices)),
	}
	for _, i := range indices {
		batch.Append(c.at(i))
	}
	return batch, nil
}

// Capacity returns the current number of elements in the fifoCache
// that are available for sampling
func (c *fifoCache) Capacity() int {
	return c.size
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the fifoCache
func (c *fifoCache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the minimum number of elements required in the
// fifoCache before sampling is allowed
func (c *fifoCache) MinCapacity() int {
	return c.minCapacity
}

// BatchSize returns the number of samples sampled using Sample() -
// a.k.a the batch size
func (c *fifoCache) BatchSize() int {
	return c.sampler.BatchSize()
}
