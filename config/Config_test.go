package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/matchradius/initwfn"
	"github.com/samuelfneumann/matchradius/solver"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		c := Default()

		Convey("It is valid", func() {
			So(c.Validate(), ShouldBeNil)
		})

		Convey("The agent acts over the radii of the simulation", func() {
			agent, err := c.AgentConfig()
			So(err, ShouldBeNil)
			So(agent.ActionSpace, ShouldResemble, c.Simulation.Radii)
			So(agent.NumLayers, ShouldEqual, 2)
			So(c.SimulationConfig().NumDrivers, ShouldEqual, c.Simulation.Drivers)
		})

		Convey("The agent uses Adam and GlorotU", func() {
			agent, err := c.AgentConfig()
			So(err, ShouldBeNil)
			So(agent.Solver.Type, ShouldEqual, solver.Adam)
			So(agent.InitWFn.Type(), ShouldEqual, initwfn.GlorotU)
			So(agent.HParams()["solver"], ShouldEqual, "Adam")
		})

		Convey("The replay buffer samples batches of the agent batch size", func() {
			So(c.ReplayConfig().SampleSize, ShouldEqual, c.Agent.BatchSize)
		})

		Convey("The run directory is named after the network and radii", func() {
			So(filepath.Base(c.RunDir()), ShouldEqual,
				"experiment_dqn_64_64_2.0_2.5_3.0_3.5_4.0_4.5_5.0_5.5_6.0")
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a partial configuration file", t, func() {
		path := writeFile(t, `
agent:
  layers: [8]
  batch_size: 4
simulation:
  radii: [1.0, 2.0]
training:
  steps: 50
  min_replay_capacity: 4
`)

		Convey("Set keys are read and the rest default", func() {
			c, err := Load(path)
			So(err, ShouldBeNil)
			So(c.Agent.Layers, ShouldResemble, []int{8})
			So(c.Agent.BatchSize, ShouldEqual, 4)
			So(c.Simulation.Radii, ShouldResemble, []float64{1, 2})
			So(c.Training.Steps, ShouldEqual, 50)
			So(c.Agent.Gamma, ShouldEqual, Default().Agent.Gamma)
			So(c.Simulation.Rows, ShouldEqual, Default().Simulation.Rows)
		})

		Convey("Environment variables override the file", func() {
			t.Setenv("MATCHRADIUS_TRAINING_STEPS", "75")
			t.Setenv("MATCHRADIUS_LOG_VERBOSITY", "1")
			Reset(func() {
				os.Unsetenv("MATCHRADIUS_TRAINING_STEPS")
				os.Unsetenv("MATCHRADIUS_LOG_VERBOSITY")
			})
			c, err := Load(path)
			So(err, ShouldBeNil)
			So(c.Training.Steps, ShouldEqual, 75)
			So(c.Log.Verbosity, ShouldEqual, 1)
		})
	})

	Convey("Given a configuration choosing the solver and initializer", t, func() {
		path := writeFile(t, `
agent:
  learning_rate: 0.01
  solver:
    type: rmsprop
  init:
    type: heu
    gain: 2.0
`)

		c, err := Load(path)
		So(err, ShouldBeNil)
		So(c.Agent.Solver.Type, ShouldEqual, "rmsprop")
		So(c.Agent.Init, ShouldResemble, Init{Type: "heu", Gain: 2})

		Convey("The agent is built with them", func() {
			agent, err := c.AgentConfig()
			So(err, ShouldBeNil)
			So(agent.Solver.Type, ShouldEqual, solver.RMSProp)
			So(agent.Solver.Config.(solver.RMSPropConfig).StepSize,
				ShouldEqual, 0.01)
			So(agent.InitWFn.Type(), ShouldEqual, initwfn.HeU)
			So(agent.InitWFn.Config, ShouldResemble,
				initwfn.Config(initwfn.HeUConfig{Gain: 2}))
			So(agent.HParams()["solver"], ShouldEqual, "RMSProp")
			So(agent.HParams()["init"], ShouldEqual, "HeU")
		})
	})

	Convey("Given no configuration file", t, func() {
		c, err := Load("")
		So(err, ShouldBeNil)
		So(c, ShouldResemble, Default())
	})

	Convey("Given a missing configuration file", t, func() {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})

	Convey("Given an invalid configuration file", t, func() {
		path := writeFile(t, "agent:\n  batch_size: 0\n")
		_, err := Load(path)
		So(err, ShouldNotBeNil)
	})
}

func TestValidate(t *testing.T) {
	Convey("Given invalid training settings", t, func() {
		modify := map[string]func(*Config){
			"steps":        func(c *Config) { c.Training.Steps = 0 },
			"checkpoint":   func(c *Config) { c.Training.CheckpointInterval = -1 },
			"sampler":      func(c *Config) { c.Training.SampleMethod = "priority" },
			"min capacity": func(c *Config) { c.Training.MinReplayCapacity = 1 },
			"max capacity": func(c *Config) { c.Training.MaxReplayCapacity = 10 },
			"radii":        func(c *Config) { c.Simulation.Radii = nil },
			"layers":       func(c *Config) { c.Agent.Layers = nil },
			"verbosity":    func(c *Config) { c.Log.Verbosity = -1 },
			"solver":       func(c *Config) { c.Agent.Solver.Type = "lbfgs" },
			"init":         func(c *Config) { c.Agent.Init.Type = "orthogonal" },
		}

		for name, m := range modify {
			c := Default()
			m(&c)
			Convey("Validation fails for "+name, func() {
				So(c.Validate(), ShouldNotBeNil)
			})
		}
	})
}

func TestWrite(t *testing.T) {
	Convey("Given a written configuration", t, func() {
		path := filepath.Join(t.TempDir(), "run", ResolvedFile)
		c := Default()
		c.Training.Steps = 123
		So(c.Write(path), ShouldBeNil)

		Convey("Loading it returns the same configuration", func() {
			loaded, err := Load(path)
			So(err, ShouldBeNil)
			So(loaded, ShouldResemble, c)
		})
	})
}
