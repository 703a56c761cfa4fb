package checkpointer

import (
	"fmt"
	"path/filepath"
	"time"
)

// Filename returns the name of the file to save a checkpoint in, given
// the learning step at which the checkpoint is taken
type Filename func(step int) string

// fileEnumerator enumerates filenames
type fileEnumerator struct {
	i         int
	name      string
	extension string
}

// filename returns the name of the next consecutive enumerated file
func (f *fileEnumerator) filename(int) string {
	f.i++
	return fmt.Sprintf("%v%v%v", f.name, f.i, f.extension)
}

// FilenameEnumerator returns a Filename which returns filenames with a
// counter integer suffix. Each time the returned function is called,
// the counter suffix is one higher than on the previous call, starting
// at start+1.
func FilenameEnumerator(start int, filename, extension string) Filename {
	enum := fileEnumerator{i: start, name: filename, extension: extension}
	return enum.filename
}

// FileTimer returns a Filename which appends to a filename the number
// of nanoseconds since January 1, 1970.
func FileTimer(filename, extension string) Filename {
	return func(int) string {
		return fmt.Sprintf("%v-%v%v", filename, time.Now().UnixNano(),
			extension)
	}
}

// FileStepper returns a Filename which names each checkpoint in dir
// after the learning step it was taken at, e.g. dir/model_500.bin
func FileStepper(dir, prefix, extension string) Filename {
	return func(step int) string {
		return filepath.Join(dir, fmt.Sprintf("%v_%v%v", prefix, step,
			extension))
	}
}

// Fixed returns a Filename which always returns filename, so that each
// checkpoint overwrites the last one
func Fixed(filename string) Filename {
	return func(int) string {
		return filename
	}
}
