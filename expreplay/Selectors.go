package expreplay

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
)

// SelectorType determines how transitions are sampled from a buffer
type SelectorType string

const (
	Uniform SelectorType = "Uniform"
	Fifo    SelectorType = "Fifo"
)

// CreateSelector returns a Selector of the given type that selects
// samples elements. Type names are matched case-insensitively.
func CreateSelector(t SelectorType, samples int,
	seed uint64) (Selector, error) {
	switch strings.ToLower(string(t)) {
	case strings.ToLower(string(Uniform)):
		return NewUniformSelector(samples, seed), nil
	case strings.ToLower(string(Fifo)):
		return NewFifoSelector(samples), nil
	}
	return nil, fmt.Errorf("createSelector: unknown selector type %q", t)
}

// Selector implements functionality for choosing how data should be
// sampled from an experience replay buffer
type Selector interface {
	// choose selects the positions, in insertion order, at which data
	// should be sampled from a buffer holding capacity elements
	choose(capacity int) []int

	// BatchSize returns the number of elements that will be selected
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
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{samples: samples, rng: rng}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects a number of indices at which to draw data from the
// buffer
func (u *uniformSelector) choose(capacity int) []int {
	selected := make([]int, u.BatchSize())
	for i := range selected {
		selected[i] = u.rng.Intn(capacity)
	}
	return selected
}

// fifoSelector is a Selector which selects the oldest data from an
// experience replay buffer.
type fifoSelector struct {
	samples int
}

// NewFifoSelector returns a new Selector which draws the oldest data
// from an experience replay buffer.
func NewFifoSelector(samples int) Selector {
	return &fifoSelector{samples: samples}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (f *fifoSelector) BatchSize() int {
	return f.samples
}

// choose selects a number of indices at which to draw data from the
// buffer. If the buffer holds fewer elements than the batch size, the
// oldest elements are repeated.
func (f *fifoSelector) choose(capacity int) []int {
	selected := make([]int, f.BatchSize())
	for i := range selected {
		selected[i] = i % capacity
	}
	return selected
}
