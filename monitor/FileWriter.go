package monitor

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Names of the files written to the directory of a FileWriter
const (
	EventsFile  = "events.jsonl"
	ScalarsFile = "scalars.html"
	LossFile    = "loss.png"
	RewardFile  = "reward.png"
)

// Event kinds of the events file
const (
	HParamsEvent   = "hparams"
	ScalarEvent    = "scalar"
	HistogramEvent = "histogram"
)

// Event is a single line of the events file
type Event struct {
	Kind      string                 `json:"kind"`
	Time      time.Time              `json:"time"`
	Tag       string                 `json:"tag,omitempty"`
	Step      int                    `json:"step"`
	Value     *Float                 `json:"value,omitempty"`
	Histogram *Histogram             `json:"histogram,omitempty"`
	HParams   map[string]interface{} `json:"hparams,omitempty"`
}

// Float is a float64 that survives JSON encoding when it is NaN or
// infinite, which a diverging loss may well be.
type Float float64

// MarshalJSON implements the json.Marshaler interface
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (f *Float) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"NaN"`:
		*f = Float(math.NaN())
		return nil
	case `"+Inf"`:
		*f = Float(math.Inf(1))
		return nil
	case `"-Inf"`:
		*f = Float(math.Inf(-1))
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Point is a scalar recorded at some step
type Point struct {
	Step  int
	Value float64
}

// FileWriter is a Writer that appends every metric as a JSON line to
// the events file of a directory. Scalars are also kept in memory, and
// when the FileWriter is closed they are rendered to an interactive
// HTML chart and the Loss and Reward scalars to PNG plots.
type FileWriter struct {
	dir string
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder

	scalars map[string][]Point
	tags    []string // Scalar tags in the order first seen
	bins    int

	closed bool
}

// NewFileWriter returns a FileWriter writing to dir, creating dir if
// needed. Events are appended to an existing events file.
func NewFileWriter(dir string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newFileWriter: could not create run "+
			"directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, EventsFile),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("newFileWriter: could not open events "+
			"file: %w", err)
	}

	buf := bufio.NewWriter(f)
	return &FileWriter{
		dir:     dir,
		f:       f,
		buf:     buf,
		enc:     json.NewEncoder(buf),
		scalars: make(map[string][]Point),
		bins:    DefaultBins,
	}, nil
}

// Dir returns the directory the FileWriter writes to
func (w *FileWriter) Dir() string {
	return w.dir
}

// Scalars returns the points recorded for the scalar tag
func (w *FileWriter) Scalars(tag string) []Point {
	return append([]Point(nil), w.scalars[tag]...)
}

func (w *FileWriter) write(e Event) error {
	if w.closed {
		return fmt.Errorf("write: file writer closed")
	}
	e.Time = time.Now()
	if err := w.enc.Encode(e); err != nil {
		return fmt.Errorf("write: could not encode %v event: %w", e.Kind, err)
	}
	return nil
}

// AddHParams implements the Writer interface
func (w *FileWriter) AddHParams(hparams map[string]interface{}) error {
	return w.write(Event{Kind: HParamsEvent, HParams: hparams})
}

// AddScalar implements the Writer interface
func (w *FileWriter) AddScalar(tag string, value float64, step int) error {
	v := Float(value)
	if err := w.write(Event{
		Kind:  ScalarEvent,
		Tag:   tag,
		Step:  step,
		Value: &v,
	}); err != nil {
		return err
	}

	if _, ok := w.scalars[tag]; !ok {
		w.tags = append(w.tags, tag)
	}
	w.scalars[tag] = append(w.scalars[tag], Point{Step: step, Value: value})
	return nil
}

// AddHistogram implements the Writer interface
func (w *FileWriter) AddHistogram(tag string, values []float64,
	step int) error {
	hist := NewHistogram(values, w.bins)
	return w.write(Event{
		Kind:      HistogramEvent,
		Tag:       tag,
		Step:      step,
		Histogram: &hist,
	})
}

// Flush writes buffered events to disk
func (w *FileWriter) Flush() error {
	if w.closed {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close flushes and closes the events file and renders the recorded
// scalars. Calling Close more than once is a no-op.
func (w *FileWriter) Close() error {
	if w.closed {
		return nil
	}

	if err := w.Flush(); err != nil {
		w.f.Close()
		w.closed = true
		return fmt.Errorf("close: %w", err)
	}
	w.closed = true
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if len(w.tags) == 0 {
		return nil
	}

	if err := renderScalarsHTML(filepath.Join(w.dir, ScalarsFile), w.tags,
		w.scalars); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	for tag, file := range map[string]string{
		"Loss":   LossFile,
		"Reward": RewardFile,
	} {
		points, ok := w.scalars[tag]
		if !ok {
			continue
		}
		if err := plotScalar(filepath.Join(w.dir, file), tag,
			points); err != nil {
			return fmt.Errorf("close: %w", err)
		}
	}
	return nil
}

// ReadEvents reads all events of an events file
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("readEvents: %w", err)
	}
	defer f.Close()

	var events []Event
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var e Event
		if err := dec.Decode(&e); err != nil {
			return events, fmt.Errorf("readEvents: event %v: %w",
				len(events), err)
		}
		events = append(events, e)
	}
	return events, nil
}
