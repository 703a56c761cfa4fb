// Package agent defines the interfaces implemented by matching radius
// agents.
//
// Agents act on batches of states, one row per driver, and learn from
// batches of transitions supplied by an external driver loop. Agents
// own no experience: any replay buffer lives with the caller.
package agent

import (
	"github.com/samuelfneumann/matchradius/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
	Checkpointer

	// Close releases the resources held by the agent
	Close() error
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Learn performs a single update using a batch of transitions
	Learn(batch timestep.Batch) error
}

// Policy represents a policy that an agent can have.
//
// Policies select one action index per state in a batch. For a given
// agent, the Policy and Learner share weights so that any changes the
// learner makes to the weights are reflected in the actions the Policy
// chooses.
type Policy interface {
	ChooseAction(states []timestep.State) ([]int, error)
	Epsilon() float64
	SetEpsilon(float64)
}

// GreedyPolicy is a Policy that can also report its greedy actions and
// the action values those actions are chosen from.
type GreedyPolicy interface {
	Policy
	Greedy(states []timestep.State) ([]int, error)
	QValues(states []timestep.State) ([][]float64, error)
}

// Checkpointer is an agent whose learned parameters can be written to
// and read from disk
type Checkpointer interface {
	SaveParameters(path string) error
	LoadParameters(path string) error
}
