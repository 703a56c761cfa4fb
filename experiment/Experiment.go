// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments track environment steps, caching data in RAM with
// Trackers to be later saved to disk by Save. Run runs all episodes
// until the maximum step limit is reached or the context is cancelled.
// RunEpisode runs a single episode.
type Experiment interface {
	Run(ctx context.Context) error

	// RunEpisode runs a single episode and returns whether the step
	// limit of the experiment has been reached
	RunEpisode(ctx context.Context) (bool, error)

	// Save saves all tracked data to disk
	Save() error
}

// Type names a kind of Experiment
type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)
