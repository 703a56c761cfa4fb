// Package checkpointer implements periodic saving of agent parameters
// during an experiment
package checkpointer

// Saver is an object whose parameters can be saved to a file, such as
// a deepq.DeepQ agent
type Saver interface {
	SaveParameters(filename string) error
}

// Checkpointer checkpoints/saves a Saver based on the number of
// learning steps taken so far
type Checkpointer interface {
	Checkpoint(step int) error
}
