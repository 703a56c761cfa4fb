// Package monitor implements sinks for the training metrics of an
// agent: scalars and weight histograms keyed by update step, and the
// hyperparameters of a run.
package monitor

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Writer is a destination for training metrics. Steps are the update
// counter of the agent emitting the metric.
type Writer interface {
	// AddHParams records the hyperparameters of a run. It is called
	// once, when an agent is constructed.
	AddHParams(hparams map[string]interface{}) error

	AddScalar(tag string, value float64, step int) error

	// AddHistogram records the distribution of values, usually the
	// elements of one parameter tensor
	AddHistogram(tag string, values []float64, step int) error

	Flush() error
	Close() error
}

// Discard is a Writer that drops all metrics
var Discard Writer = discard{}

type discard struct{}

func (discard) AddHParams(map[string]interface{}) error   { return nil }
func (discard) AddScalar(string, float64, int) error      { return nil }
func (discard) AddHistogram(string, []float64, int) error { return nil }
func (discard) Flush() error                              { return nil }
func (discard) Close() error                              { return nil }

// RunDir returns the directory under root that metrics of a DQN run
// with the given hidden layer sizes and action space are written to:
//
//	<root>/experiment_dqn_<layers joined by _>_<radii joined by _>
//
// Radii are always written with a decimal point, so that 2 becomes
// "2.0".
func RunDir(root string, layers []int, actionSpace []float64) string {
	layerStrs := make([]string, len(layers))
	for i, l := range layers {
		layerStrs[i] = strconv.Itoa(l)
	}

	actionStrs := make([]string, len(actionSpace))
	for i, a := range actionSpace {
		actionStrs[i] = formatFloat(a)
	}

	name := "experiment_dqn_" + strings.Join(layerStrs, "_") + "_" +
		strings.Join(actionStrs, "_")
	return filepath.Join(root, name)
}

// formatFloat formats f in its shortest representation with at least
// one digit after the decimal point
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
