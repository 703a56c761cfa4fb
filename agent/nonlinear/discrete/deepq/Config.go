package deepq

import (
	"fmt"

	"github.com/samuelfneumann/matchradius/initwfn"
	"github.com/samuelfneumann/matchradius/solver"
)

// Default hyperparameters of a DeepQ agent
const (
	DefaultLearningRate         = 0.0005
	DefaultGamma                = 0.99
	DefaultEpsilon              = 1.0
	DefaultEpsilonMin           = 0.01
	DefaultEpsilonDecay         = 0.997
	DefaultTargetUpdateInterval = 2000
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	// ActionSpace holds the candidate matching radii. The agent only
	// works with indices into this list.
	ActionSpace []float64

	NumLayers int   // Number of hidden layers
	Layers    []int // Hidden layer sizes in neural net

	LearningRate float64
	Gamma        float64 // Discount factor

	// Behaviour policy epsilon. After each call to Learn, Epsilon is
	// decreased by EpsilonDecay (additively) down to EpsilonMin.
	Epsilon      float64
	EpsilonMin   float64
	EpsilonDecay float64

	// Number of calls to Learn between hard target network updates
	TargetUpdateInterval int

	// Number of transitions in each batch given to Learn
	BatchSize int

	// Solver for learning weights, Adam with LearningRate if nil
	Solver *solver.Solver `yaml:"-"`

	// Initialization algorithm for weights, GlorotU(1) if nil
	InitWFn *initwfn.InitWFn `yaml:"-"`
}

// DefaultConfig returns a Config with default hyperparameters for the
// given action space, hidden layers and batch size.
func DefaultConfig(actionSpace []float64, layers []int,
	batchSize int) Config {
	return Config{
		ActionSpace:          append([]float64(nil), actionSpace...),
		NumLayers:            len(layers),
		Layers:               append([]int(nil), layers...),
		LearningRate:         DefaultLearningRate,
		Gamma:                DefaultGamma,
		Epsilon:              DefaultEpsilon,
		EpsilonMin:           DefaultEpsilonMin,
		EpsilonDecay:         DefaultEpsilonDecay,
		TargetUpdateInterval: DefaultTargetUpdateInterval,
		BatchSize:            batchSize,
	}
}

// NumActions returns the number of actions of an agent constructed
// with this Config
func (c Config) NumActions() int {
	return len(c.ActionSpace)
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if len(c.ActionSpace) < 1 {
		return fmt.Errorf("validate: action space must be non-empty")
	}

	if c.NumLayers < 1 {
		return fmt.Errorf("validate: invalid number of layers\n\twant(>0)"+
			"\n\thave(%v)", c.NumLayers)
	}

	if len(c.Layers) != c.NumLayers {
		return fmt.Errorf("validate: invalid number of layer sizes"+
			"\n\twant(%v)\n\thave(%v)", c.NumLayers, len(c.Layers))
	}

	for i, size := range c.Layers {
		if size < 1 {
			return fmt.Errorf("validate: invalid size of layer %v"+
				"\n\twant(>0)\n\thave(%v)", i, size)
		}
	}

	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.LearningRate)
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount out of range\n\twant([0, 1])"+
			"\n\thave(%v)", c.Gamma)
	}

	if c.EpsilonMin < 0 || c.EpsilonMin > 1 {
		return fmt.Errorf("validate: minimum epsilon out of range"+
			"\n\twant([0, 1])\n\thave(%v)", c.EpsilonMin)
	}

	if c.Epsilon < c.EpsilonMin || c.Epsilon > 1 {
		return fmt.Errorf("validate: epsilon out of range\n\twant([%v, 1])"+
			"\n\thave(%v)", c.EpsilonMin, c.Epsilon)
	}

	if c.EpsilonDecay < 0 {
		return fmt.Errorf("validate: epsilon decay must be non-negative"+
			"\n\twant(>=0)\n\thave(%v)", c.EpsilonDecay)
	}

	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("validate: target networks must be updated at "+
			"positive intervals \n\twant(>0) \n\thave(%v)",
			c.TargetUpdateInterval)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("validate: invalid batch size\n\twant(>0)"+
			"\n\thave(%v)", c.BatchSize)
	}

	return nil
}

// HParams returns the hyperparameters of the Config keyed by name, as
// reported to a monitor.
func (c Config) HParams() map[string]interface{} {
	solverName := string(solver.Adam)
	if c.Solver != nil {
		solverName = string(c.Solver.Type)
	}
	initName := string(initwfn.GlorotU)
	if c.InitWFn != nil {
		initName = string(c.InitWFn.Type())
	}

	return map[string]interface{}{
		"action_space":           fmt.Sprint(c.ActionSpace),
		"num_actions":            len(c.ActionSpace),
		"num_layers":             c.NumLayers,
		"layers":                 fmt.Sprint(c.Layers),
		"learning_rate":          c.LearningRate,
		"gamma":                  c.Gamma,
		"epsilon":                c.Epsilon,
		"epsilon_min":            c.EpsilonMin,
		"epsilon_decay":          c.EpsilonDecay,
		"target_update_interval": c.TargetUpdateInterval,
		"batch_size":             c.BatchSize,
		"solver":                 solverName,
		"init":                   initName,
	}
}
