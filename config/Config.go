// Package config implements the YAML configuration of a training run.
//
// A configuration is read from a YAML file with viper, on top of the
// defaults returned by Default. Any key can be overridden by an
// environment variable named after its path with the prefix
// MATCHRADIUS_, e.g. MATCHRADIUS_AGENT_BATCH_SIZE=64.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samuelfneumann/matchradius/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/matchradius/environment/dispatch"
	"github.com/samuelfneumann/matchradius/expreplay"
	"github.com/samuelfneumann/matchradius/initwfn"
	"github.com/samuelfneumann/matchradius/monitor"
	"github.com/samuelfneumann/matchradius/solver"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables that override
// configuration keys
const EnvPrefix = "MATCHRADIUS"

// ResolvedFile is the name of the file the resolved configuration is
// written to in a run directory
const ResolvedFile = "config.yaml"

// Agent configures the DQN agent
type Agent struct {
	Layers               []int   `mapstructure:"layers" yaml:"layers"`
	LearningRate         float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	Gamma                float64 `mapstructure:"gamma" yaml:"gamma"`
	Epsilon              float64 `mapstructure:"epsilon" yaml:"epsilon"`
	EpsilonMin           float64 `mapstructure:"epsilon_min" yaml:"epsilon_min"`
	EpsilonDecay         float64 `mapstructure:"epsilon_decay" yaml:"epsilon_decay"`
	TargetUpdateInterval int     `mapstructure:"target_update_interval" yaml:"target_update_interval"`
	BatchSize            int     `mapstructure:"batch_size" yaml:"batch_size"`
	Solver               Solver  `mapstructure:"solver" yaml:"solver"`
	Init                 Init    `mapstructure:"init" yaml:"init"`
}

// Solver names the gradient descent algorithm of the agent: Adam,
// RMSProp or Vanilla. The step size is the agent's learning rate.
type Solver struct {
	Type string `mapstructure:"type" yaml:"type"`
}

// Init names the weight initializer of the agent's network: GlorotU,
// GlorotN, HeU, HeN, Uniform, Zeroes or Constant. Gain is the gain of
// Glorot and He initializers, the half-width of Uniform and the value
// of Constant.
type Init struct {
	Type string  `mapstructure:"type" yaml:"type"`
	Gain float64 `mapstructure:"gain" yaml:"gain"`
}

// Simulation configures the dispatch simulation
type Simulation struct {
	Rows         int       `mapstructure:"rows" yaml:"rows"`
	Cols         int       `mapstructure:"cols" yaml:"cols"`
	TimeSlices   int       `mapstructure:"time_slices" yaml:"time_slices"`
	CellSize     float64   `mapstructure:"cell_size" yaml:"cell_size"`
	Drivers      int       `mapstructure:"drivers" yaml:"drivers"`
	BaseDemand   float64   `mapstructure:"base_demand" yaml:"base_demand"`
	DemandSpread float64   `mapstructure:"demand_spread" yaml:"demand_spread"`
	PeakFactor   float64   `mapstructure:"peak_factor" yaml:"peak_factor"`
	FareMean     float64   `mapstructure:"fare_mean" yaml:"fare_mean"`
	FareStd      float64   `mapstructure:"fare_std" yaml:"fare_std"`
	Radii        []float64 `mapstructure:"radii" yaml:"radii"`
}

// Training configures the training loop
type Training struct {
	Steps              int    `mapstructure:"steps" yaml:"steps"`
	Seed               uint64 `mapstructure:"seed" yaml:"seed"`
	SampleMethod       string `mapstructure:"sample_method" yaml:"sample_method"`
	MinReplayCapacity  int    `mapstructure:"min_replay_capacity" yaml:"min_replay_capacity"`
	MaxReplayCapacity  int    `mapstructure:"max_replay_capacity" yaml:"max_replay_capacity"`
	CheckpointInterval int    `mapstructure:"checkpoint_interval" yaml:"checkpoint_interval"`
	RunRoot            string `mapstructure:"run_root" yaml:"run_root"`
	ProgressBar        bool   `mapstructure:"progress_bar" yaml:"progress_bar"`
}

// Log configures logging
type Log struct {
	// Verbosity is the highest logr V-level that is printed. Level 1
	// prints the loss of every learning step.
	Verbosity int `mapstructure:"verbosity" yaml:"verbosity"`
}

// Config is the configuration of a training run
type Config struct {
	Agent      Agent      `mapstructure:"agent" yaml:"agent"`
	Simulation Simulation `mapstructure:"simulation" yaml:"simulation"`
	Training   Training   `mapstructure:"training" yaml:"training"`
	Log        Log        `mapstructure:"log" yaml:"log"`
}

// Default returns the default configuration: the default agent and
// simulation with a two layer network of 64 units per layer
func Default() Config {
	sim := dispatch.DefaultConfig()
	agent := deepq.DefaultConfig(sim.ActionSpace, []int{64, 64}, 32)

	return Config{
		Agent: Agent{
			Layers:               agent.Layers,
			LearningRate:         agent.LearningRate,
			Gamma:                agent.Gamma,
			Epsilon:              agent.Epsilon,
			EpsilonMin:           agent.EpsilonMin,
			EpsilonDecay:         agent.EpsilonDecay,
			TargetUpdateInterval: agent.TargetUpdateInterval,
			BatchSize:            agent.BatchSize,
			Solver:               Solver{Type: string(solver.Adam)},
			Init:                 Init{Type: string(initwfn.GlorotU), Gain: 1},
		},
		Simulation: Simulation{
			Rows:         sim.Rows,
			Cols:         sim.Cols,
			TimeSlices:   sim.TimeSlices,
			CellSize:     sim.CellSize,
			Drivers:      sim.NumDrivers,
			BaseDemand:   sim.BaseDemand,
			DemandSpread: sim.DemandSpread,
			PeakFactor:   sim.PeakFactor,
			FareMean:     sim.FareMean,
			FareStd:      sim.FareStd,
			Radii:        sim.ActionSpace,
		},
		Training: Training{
			Steps:              20000,
			Seed:               1,
			SampleMethod:       string(expreplay.Uniform),
			MinReplayCapacity:  1000,
			MaxReplayCapacity:  100000,
			CheckpointInterval: 1000,
			RunRoot:            "runs",
			ProgressBar:        true,
		},
		Log: Log{Verbosity: 0},
	}
}

// Load reads the configuration at path on top of the defaults and
// applies environment overrides. An empty path loads the defaults and
// environment overrides only.
func Load(path string) (Config, error) {
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return Config{}, fmt.Errorf("load: could not encode defaults: %v",
			err)
	}

	vp := viper.New()
	vp.SetConfigType("yaml")
	if err := vp.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, fmt.Errorf("load: could not read defaults: %v", err)
	}

	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("load: %w", err)
		}
	}

	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var c Config
	if err := vp.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}

	return c, c.Validate()
}

// Validate returns an error if the Config cannot be used to train an
// agent
func (c Config) Validate() error {
	if err := c.SimulationConfig().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	agent, err := c.AgentConfig()
	if err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}

	t := c.Training
	if t.Steps < 1 {
		return fmt.Errorf("training: invalid number of steps\n\twant(>0)"+
			"\n\thave(%v)", t.Steps)
	}
	if t.CheckpointInterval < 0 {
		return fmt.Errorf("training: checkpoint interval must be "+
			"non-negative\n\twant(>=0)\n\thave(%v)", t.CheckpointInterval)
	}
	if _, err := expreplay.CreateSelector(
		expreplay.SelectorType(t.SampleMethod), 1, 0); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if t.MinReplayCapacity < c.Agent.BatchSize {
		return fmt.Errorf("training: minimum replay capacity must hold a "+
			"batch\n\twant(>=%v)\n\thave(%v)", c.Agent.BatchSize,
			t.MinReplayCapacity)
	}
	if t.MaxReplayCapacity < t.MinReplayCapacity {
		return fmt.Errorf("training: maximum replay capacity (%v) must be "+
			">= minimum replay capacity (%v)", t.MaxReplayCapacity,
			t.MinReplayCapacity)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log: verbosity must be non-negative")
	}
	return nil
}

// AgentConfig returns the configuration of the DQN agent. The action
// space of the agent is the set of radii of the simulation. An error
// is returned if the solver or weight initializer is unknown.
func (c Config) AgentConfig() (deepq.Config, error) {
	a := deepq.DefaultConfig(c.Simulation.Radii, c.Agent.Layers,
		c.Agent.BatchSize)
	a.LearningRate = c.Agent.LearningRate
	a.Gamma = c.Agent.Gamma
	a.Epsilon = c.Agent.Epsilon
	a.EpsilonMin = c.Agent.EpsilonMin
	a.EpsilonDecay = c.Agent.EpsilonDecay
	a.TargetUpdateInterval = c.Agent.TargetUpdateInterval

	// The loss is averaged over the batch, so gradients are not rescaled
	s, err := solver.New(solver.Type(c.Agent.Solver.Type),
		c.Agent.LearningRate, 1)
	if err != nil {
		return deepq.Config{}, fmt.Errorf("solver: %w", err)
	}
	a.Solver = s

	wFn, err := initwfn.New(initwfn.Type(c.Agent.Init.Type),
		c.Agent.Init.Gain)
	if err != nil {
		return deepq.Config{}, fmt.Errorf("init: %w", err)
	}
	a.InitWFn = wFn

	return a, nil
}

// SimulationConfig returns the configuration of the dispatch
// simulation
func (c Config) SimulationConfig() dispatch.Config {
	s := c.Simulation
	return dispatch.Config{
		Rows:         s.Rows,
		Cols:         s.Cols,
		TimeSlices:   s.TimeSlices,
		CellSize:     s.CellSize,
		NumDrivers:   s.Drivers,
		BaseDemand:   s.BaseDemand,
		DemandSpread: s.DemandSpread,
		PeakFactor:   s.PeakFactor,
		FareMean:     s.FareMean,
		FareStd:      s.FareStd,
		ActionSpace:  append([]float64(nil), s.Radii...),
	}
}

// ReplayConfig returns the configuration of the experience replay
// buffer. Batches are sampled at the batch size of the agent.
func (c Config) ReplayConfig() expreplay.Config {
	return expreplay.Config{
		SampleMethod:      expreplay.SelectorType(c.Training.SampleMethod),
		SampleSize:        c.Agent.BatchSize,
		MinReplayCapacity: c.Training.MinReplayCapacity,
		MaxReplayCapacity: c.Training.MaxReplayCapacity,
	}
}

// RunDir returns the directory the monitor, checkpoints and tracked
// data of the run are written to
func (c Config) RunDir() string {
	return monitor.RunDir(c.Training.RunRoot, c.Agent.Layers,
		c.Simulation.Radii)
}

// Write writes the Config as YAML to path
func (c Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("write: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
