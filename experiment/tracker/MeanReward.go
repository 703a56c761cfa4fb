package tracker

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// MeanReward tracks and saves the mean reward over all agents at each
// step of an experiment
type MeanReward struct {
	lastStep int
	means    []float64
	filename string
}

// NewMeanReward creates and returns a new *MeanReward Tracker
func NewMeanReward(filename string) *MeanReward {
	return &MeanReward{lastStep: -1, filename: filename}
}

// Track records the mean reward of step.
//
// Track panics if it is called for non-sequential steps
func (m *MeanReward) Track(step Step) {
	if m.lastStep+1 != step.Number {
		panic(fmt.Sprintf("track: last two steps tracked are not "+
			"sequential: step %v --> step %v", m.lastStep, step.Number))
	}
	m.lastStep = step.Number

	mean := 0.0
	if len(step.Rewards) > 0 {
		mean = stat.Mean(step.Rewards, nil)
	}
	m.means = append(m.means, mean)
}

// Data returns the mean reward of each step tracked so far
func (m *MeanReward) Data() []float64 {
	return append([]float64(nil), m.means...)
}

// Save saves the data tracked by the MeanReward Tracker to disk
func (m *MeanReward) Save() error {
	return save(m.filename, m.means)
}
