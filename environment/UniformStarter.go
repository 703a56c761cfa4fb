package environment

import (
	"math"

	ts "github.com/samuelfneumann/matchradius/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter places each agent in a uniformly random grid cell at
// a fixed time slice
type UniformStarter struct {
	agents    int
	cells     int
	timeSlice int
	rand      *distmv.Uniform
}

// NewUniformStarter returns a Starter for agents agents on a grid of
// cells cells, starting at timeSlice
func NewUniformStarter(agents, cells, timeSlice int,
	seed uint64) UniformStarter {
	bounds := make([]r1.Interval, agents)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: 0, Max: float64(cells)}
	}

	source := rand.NewSource(seed)
	rand := distmv.NewUniform(bounds, source)

	return UniformStarter{agents, cells, timeSlice, rand}
}

// Start implements the Starter interface
func (u UniformStarter) Start() []ts.State {
	positions := u.rand.Rand(nil)

	states := make([]ts.State, u.agents)
	for i, p := range positions {
		// Guard against a draw of exactly the upper bound
		cell := int(math.Min(math.Floor(p), float64(u.cells-1)))
		states[i] = ts.NewState(u.timeSlice, cell)
	}
	return states
}
