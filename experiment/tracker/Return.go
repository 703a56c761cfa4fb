package tracker

import (
	"gonum.org/v1/gonum/floats"
)

// Return tracks and saves the episodic return of an experiment,
// averaged over all agents. Rewards are accumulated per agent until a
// step ends the episode, at which point the mean over agents of the
// accumulated rewards is stored.
//
// Note: An episode must finish for this Tracker to save its data.
// If the last episode in an experiment does not finish, that episode's
// return will not be saved.
type Return struct {
	current        []float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track accumulates the rewards of step
func (r *Return) Track(step Step) {
	if r.current == nil {
		r.current = make([]float64, len(step.Rewards))
	}
	floats.Add(r.current, step.Rewards)

	if step.Last {
		mean := 0.0
		if len(r.current) > 0 {
			mean = floats.Sum(r.current) / float64(len(r.current))
		}
		r.episodeReturns = append(r.episodeReturns, mean)
		r.current = nil
	}
}

// Data returns the return of each episode finished so far
func (r *Return) Data() []float64 {
	return append([]float64(nil), r.episodeReturns...)
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}
