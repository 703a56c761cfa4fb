package checkpointer

import "fmt"

// nStep implements checkpointing every N learning steps
type nStep struct {
	interval int
	object   Saver

	// filename returns the filename of the file to save the object in.
	//
	// If each checkpoint should be saved in a separate file with an
	// incremented number as a suffix (e.g. file1.bin, ..., fileK.bin)
	// use FilenameEnumerator. To name files by the learning step use
	// FileStepper, and to overwrite a single file use Fixed:
	//
	//	n := NewNStep(10, agent, FileStepper("run", "model", ".bin"))
	filename Filename
}

// NewNStep returns a checkpointer that checkpoints every n steps
func NewNStep(n int, object Saver, filename Filename) (Checkpointer,
	error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be positive"+
			"\n\twant(>0)\n\thave(%v)", n)
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the Checkpointer's tracked object if step is a
// positive multiple of the checkpointing interval
func (n *nStep) Checkpoint(step int) error {
	if step > 0 && step%n.interval == 0 {
		return n.object.SaveParameters(n.filename(step))
	}
	return nil
}
