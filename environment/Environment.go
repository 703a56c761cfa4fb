// Package environment outlines the interfaces needed to implement
// dispatch environments that a matching radius agent can be trained in
package environment

import (
	ts "github.com/samuelfneumann/matchradius/timestep"
)

// Starter implements a distribution of starting states and samples
// the starting state of every agent (driver) in an environment
type Starter interface {
	Start() []ts.State
}

// Task implements the reward scheme of a dispatch environment
type Task interface {
	// GetReward returns the reward of a driver that used the matching
	// radius radius and was, or was not, matched to a request paying
	// fare
	GetReward(radius, fare float64, matched bool) float64
}

// Ender determines when an episode ends
type Ender interface {
	End(step int) bool
}

// Environment implements a simulated dispatch system with a fixed
// number of agents. All agents act simultaneously: each step takes one
// action index per agent and returns one reward and one next state per
// agent, in the same order.
type Environment interface {
	// Reset starts a new episode and returns the state of each agent
	Reset() []ts.State

	// Step executes one action per agent
	Step(actions []int) (rewards []float64, next []ts.State, err error)

	// NumAgents returns the number of agents acting in the environment
	NumAgents() int

	// ActionSpace returns the matching radius of each action index
	ActionSpace() []float64
}
