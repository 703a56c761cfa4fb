// Package dispatch implements a synthetic ride-dispatch simulation in
// which every driver picks the matching radius used to search for
// requests around it.
//
// The city is a grid of square cells and a day is split into time
// slices. Requests arrive in each cell as a Poisson process whose rate
// depends on the cell and follows a daily cycle. A driver using radius
// r is matched with probability
//
//	1 - exp(-demand * π r² / cellArea)
//
// that is, the probability that at least one request arrives within its
// search disc. Matched drivers collect a fare, earn fare / r, and end
// the step in a random cell within the radius. Larger radii match more
// often but pay less per match.
package dispatch

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/matchradius/environment"
	ts "github.com/samuelfneumann/matchradius/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config describes a dispatch simulation
type Config struct {
	Rows, Cols int
	TimeSlices int     // Time slices in a day
	CellSize   float64 // Side length of a cell in km
	NumDrivers int

	// Mean number of requests per cell per time slice, before the
	// daily cycle is applied. Each cell scales this rate by a
	// log-normal factor with log standard deviation DemandSpread.
	BaseDemand   float64
	DemandSpread float64

	// Relative amplitude of the daily demand cycle, in [0, 1]
	PeakFactor float64

	FareMean float64
	FareStd  float64

	// ActionSpace holds the matching radii, in km, of each action index
	ActionSpace []float64
}

// DefaultConfig returns a 10 x 10 grid of 1 km cells over a day of 24
// time slices with radii from 2 km to 6 km in 0.5 km steps
func DefaultConfig() Config {
	return Config{
		Rows:         10,
		Cols:         10,
		TimeSlices:   24,
		CellSize:     1.0,
		NumDrivers:   64,
		BaseDemand:   0.05,
		DemandSpread: 0.5,
		PeakFactor:   0.6,
		FareMean:     15.0,
		FareStd:      5.0,
		ActionSpace:  []float64{2.0, 2.5, 3.0, 3.5, 4.0, 4.5, 5.0, 5.5, 6.0},
	}
}

// Validate returns an error if the Config does not describe a valid
// simulation
func (c Config) Validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return fmt.Errorf("validate: invalid grid size %vx%v", c.Rows, c.Cols)
	}
	if c.TimeSlices < 1 {
		return fmt.Errorf("validate: invalid number of time slices"+
			"\n\twant(>0)\n\thave(%v)", c.TimeSlices)
	}
	if c.CellSize <= 0 {
		return fmt.Errorf("validate: cell size must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.CellSize)
	}
	if c.NumDrivers < 1 {
		return fmt.Errorf("validate: invalid number of drivers"+
			"\n\twant(>0)\n\thave(%v)", c.NumDrivers)
	}
	if c.BaseDemand < 0 || c.DemandSpread < 0 {
		return fmt.Errorf("validate: demand parameters must be non-negative")
	}
	if c.PeakFactor < 0 || c.PeakFactor > 1 {
		return fmt.Errorf("validate: peak factor out of range"+
			"\n\twant([0, 1])\n\thave(%v)", c.PeakFactor)
	}
	if c.FareStd < 0 {
		return fmt.Errorf("validate: fare standard deviation must be " +
			"non-negative")
	}
	if len(c.ActionSpace) == 0 {
		return fmt.Errorf("validate: action space must be non-empty")
	}
	for _, r := range c.ActionSpace {
		if r <= 0 {
			return fmt.Errorf("validate: radii must be positive\n\twant(>0)"+
				"\n\thave(%v)", r)
		}
	}
	return nil
}

// NumCells returns the number of grid cells of the simulation
func (c Config) NumCells() int {
	return c.Rows * c.Cols
}

// FareRadius is the Task of the dispatch simulation: a matched driver
// earns the fare divided by its matching radius, an unmatched driver
// earns nothing.
type FareRadius struct{}

// GetReward implements the environment.Task interface
func (FareRadius) GetReward(radius, fare float64, matched bool) float64 {
	if !matched {
		return 0
	}
	return fare / radius
}

// MatchProbability returns the probability that at least one request
// arrives within radius of a driver, when requests arrive at rate
// demand per cell of area cellArea.
func MatchProbability(demand, radius, cellArea float64) float64 {
	return 1 - math.Exp(-demand*math.Pi*radius*radius/cellArea)
}

// Simulator implements environment.Environment
type Simulator struct {
	config  Config
	starter environment.Starter
	task    environment.Task

	// demand[t][g] is the request rate in cell g at time slice t
	demand [][]float64

	// reachable[a][g] holds the cells whose centres are within radius
	// ActionSpace[a] of the centre of cell g
	reachable [][][]int

	drivers []ts.State
	rng     *rand.Rand
	fares   distuv.Normal
}

// New returns a new Simulator. The demand of each cell and all
// randomness of the simulation is determined by seed.
func New(c Config, seed uint64) (*Simulator, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	rng := rand.New(rand.NewSource(seed))
	cellFactor := distuv.LogNormal{
		Mu:    -c.DemandSpread * c.DemandSpread / 2, // Unit mean
		Sigma: c.DemandSpread,
		Src:   rand.NewSource(seed + 1),
	}

	weights := make([]float64, c.NumCells())
	for g := range weights {
		weights[g] = cellFactor.Rand()
	}

	demand := make([][]float64, c.TimeSlices)
	for t := range demand {
		cycle := 1 + c.PeakFactor*math.Sin(2*math.Pi*float64(t)/
			float64(c.TimeSlices))
		demand[t] = make([]float64, c.NumCells())
		for g := range demand[t] {
			demand[t][g] = c.BaseDemand * weights[g] * cycle
		}
	}

	s := &Simulator{
		config:    c,
		starter:   environment.NewUniformStarter(c.NumDrivers, c.NumCells(), 0, seed+2),
		task:      FareRadius{},
		demand:    demand,
		reachable: make([][][]int, len(c.ActionSpace)),
		rng:       rng,
		fares: distuv.Normal{
			Mu:    c.FareMean,
			Sigma: c.FareStd,
			Src:   rand.NewSource(seed + 3),
		},
	}

	for a, r := range c.ActionSpace {
		s.reachable[a] = make([][]int, c.NumCells())
		for g := range s.reachable[a] {
			s.reachable[a][g] = s.cellsWithin(g, r)
		}
	}

	s.Reset()
	return s, nil
}

// cellsWithin returns the cells whose centres are within radius of the
// centre of cell g. The result always contains g.
func (s *Simulator) cellsWithin(g int, radius float64) []int {
	row, col := g/s.config.Cols, g%s.config.Cols
	var cells []int
	for other := 0; other < s.config.NumCells(); other++ {
		dr := float64(other/s.config.Cols - row)
		dc := float64(other%s.config.Cols - col)
		if math.Hypot(dr, dc)*s.config.CellSize <= radius {
			cells = append(cells, other)
		}
	}
	return cells
}

// Reset implements the environment.Environment interface. Drivers are
// placed uniformly at random at the first time slice of the day.
func (s *Simulator) Reset() []ts.State {
	s.drivers = s.starter.Start()
	return s.States()
}

// States returns the current state of each driver
func (s *Simulator) States() []ts.State {
	return append([]ts.State(nil), s.drivers...)
}

// Step implements the environment.Environment interface
func (s *Simulator) Step(actions []int) ([]float64, []ts.State, error) {
	if len(actions) != len(s.drivers) {
		return nil, nil, fmt.Errorf("step: invalid number of actions"+
			"\n\twant(%v)\n\thave(%v)", len(s.drivers), len(actions))
	}
	for i, a := range actions {
		if a < 0 || a >= len(s.config.ActionSpace) {
			return nil, nil, fmt.Errorf("step: action %v of driver %v out "+
				"of range [0, %v)", a, i, len(s.config.ActionSpace))
		}
	}

	cellArea := s.config.CellSize * s.config.CellSize
	rewards := make([]float64, len(s.drivers))
	for i, a := range actions {
		driver := s.drivers[i]
		radius := s.config.ActionSpace[a]
		demand := s.demand[driver.TimeSlice][driver.GridID]

		matched := s.rng.Float64() < MatchProbability(demand, radius, cellArea)
		fare := 0.0
		cell := driver.GridID
		if matched {
			fare = math.Max(s.fares.Rand(), 0)
			reachable := s.reachable[a][driver.GridID]
			cell = reachable[s.rng.Intn(len(reachable))]
		}

		rewards[i] = s.task.GetReward(radius, fare, matched)
		s.drivers[i] = ts.NewState(
			(driver.TimeSlice+1)%s.config.TimeSlices,
			cell,
		)
	}

	return rewards, s.States(), nil
}

// NumAgents implements the environment.Environment interface
func (s *Simulator) NumAgents() int {
	return s.config.NumDrivers
}

// ActionSpace implements the environment.Environment interface
func (s *Simulator) ActionSpace() []float64 {
	return append([]float64(nil), s.config.ActionSpace...)
}

// Config returns the configuration of the Simulator
func (s *Simulator) Config() Config {
	return s.config
}

// Demand returns the request rate in cell g at time slice t
func (s *Simulator) Demand(t, g int) float64 {
	return s.demand[t][g]
}
