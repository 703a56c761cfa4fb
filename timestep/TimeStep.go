// Package timestep implements the values exchanged between a dispatch
// environment and a matching radius agent: agent states and batches of
// transitions.
package timestep

import (
	"fmt"
)

// Features is the number of features in the vector representation of
// a State
const Features = 2

// State is the state of a single dispatch agent (driver). States are
// plain values, two States with the same time slice and grid cell are
// the same state.
type State struct {
	TimeSlice int
	GridID    int
}

// NewState returns a new State
func NewState(timeSlice, gridID int) State {
	return State{TimeSlice: timeSlice, GridID: gridID}
}

// Vector returns the State as a feature vector [time_slice, grid_id]
func (s State) Vector() []float64 {
	return []float64{float64(s.TimeSlice), float64(s.GridID)}
}

func (s State) String() string {
	return fmt.Sprintf("(%d, %d)", s.TimeSlice, s.GridID)
}

// Flatten returns the feature vectors of states concatenated in row
// major order, so that the returned slice can back a
// len(states) x Features matrix.
func Flatten(states []State) []float64 {
	flat := make([]float64, 0, len(states)*Features)
	for _, s := range states {
		flat = append(flat, float64(s.TimeSlice), float64(s.GridID))
	}
	return flat
}

// Batch is a batch of transitions. All four slices are parallel and
// must have the same length: row i of a Batch is the transition
// (States[i], Actions[i], Rewards[i], NextStates[i]). Actions are
// indices into the action space of the agent.
type Batch struct {
	States     []State
	Actions    []int
	Rewards    []float64
	NextStates []State
}

// Len returns the number of transitions in the Batch
func (b Batch) Len() int {
	return len(b.States)
}

// Validate checks that all slices in the Batch have the same length
// and that each action is in [0, numActions).
func (b Batch) Validate(numActions int) error {
	n := len(b.States)
	if n == 0 {
		return fmt.Errorf("validate: empty batch")
	}
	if len(b.Actions) != n {
		return fmt.Errorf("validate: invalid number of actions\n\twant(%v)"+
			"\n\thave(%v)", n, len(b.Actions))
	}
	if len(b.Rewards) != n {
		return fmt.Errorf("validate: invalid number of rewards\n\twant(%v)"+
			"\n\thave(%v)", n, len(b.Rewards))
	}
	if len(b.NextStates) != n {
		return fmt.Errorf("validate: invalid number of next states"+
			"\n\twant(%v)\n\thave(%v)", n, len(b.NextStates))
	}

	for i, a := range b.Actions {
		if a < 0 || a >= numActions {
			return fmt.Errorf("validate: action %v at row %v out of range "+
				"[0, %v)", a, i, numActions)
		}
	}
	return nil
}

// Transition is a single row of a Batch
type Transition struct {
	State     State
	Action    int
	Reward    float64
	NextState State
}

// At returns the transition at row i of the Batch
func (b Batch) At(i int) Transition {
	return Transition{
		State:     b.States[i],
		Action:    b.Actions[i],
		Reward:    b.Rewards[i],
		NextState: b.NextStates[i],
	}
}

// Append adds a transition as the last row of the Batch
func (b *Batch) Append(t Transition) {
	b.States = append(b.States, t.State)
	b.Actions = append(b.Actions, t.Action)
	b.Rewards = append(b.Rewards, t.Reward)
	b.NextStates = append(b.NextStates, t.NextState)
}
