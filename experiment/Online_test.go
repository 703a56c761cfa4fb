package experiment

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/matchradius/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/matchradius/environment"
	"github.com/samuelfneumann/matchradius/environment/dispatch"
	"github.com/samuelfneumann/matchradius/experiment/checkpointer"
	"github.com/samuelfneumann/matchradius/experiment/tracker"
	"github.com/samuelfneumann/matchradius/expreplay"
	ts "github.com/samuelfneumann/matchradius/timestep"
)

// fakeAgent always chooses action 0 and records what it learns from
type fakeAgent struct {
	batchSize int
	learned   []int
	saved     []string
}

func (f *fakeAgent) Learn(b ts.Batch) error {
	f.learned = append(f.learned, b.Len())
	return nil
}

func (f *fakeAgent) ChooseAction(states []ts.State) ([]int, error) {
	return make([]int, len(states)), nil
}

func (f *fakeAgent) Epsilon() float64            { return 0.5 }
func (f *fakeAgent) SetEpsilon(float64)          {}
func (f *fakeAgent) BatchSize() int              { return f.batchSize }
func (f *fakeAgent) Close() error                { return nil }
func (f *fakeAgent) LoadParameters(string) error { return nil }

func (f *fakeAgent) SaveParameters(path string) error {
	f.saved = append(f.saved, path)
	return nil
}

func newSim(t *testing.T, drivers int) *dispatch.Simulator {
	t.Helper()
	c := dispatch.DefaultConfig()
	c.NumDrivers = drivers
	sim, err := dispatch.New(c, 11)
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func newReplay(t *testing.T, batch, min, max int) expreplay.ExperienceReplayer {
	t.Helper()
	replay, err := expreplay.Config{
		SampleMethod:      expreplay.Uniform,
		SampleSize:        batch,
		MinReplayCapacity: min,
		MaxReplayCapacity: max,
	}.Create(5)
	if err != nil {
		t.Fatal(err)
	}
	return replay
}

func TestOnlineRun(t *testing.T) {
	agent := &fakeAgent{batchSize: 4}
	check, err := checkpointer.NewNStep(3, agent,
		checkpointer.FileStepper("run", "model", ".bin"))
	if err != nil {
		t.Fatal(err)
	}
	mean := tracker.NewMeanReward(filepath.Join(t.TempDir(), "reward.bin"))
	ret := tracker.NewReturn(filepath.Join(t.TempDir(), "return.bin"))

	exp, err := NewOnline(newSim(t, 4), agent, newReplay(t, 4, 8, 100), 10,
		WithEnder(environment.NewStepLimit(4)),
		WithCheckpointers(check),
		WithTrackers(mean, ret),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if exp.Steps() != 10 {
		t.Errorf("steps: want(10) have(%v)", exp.Steps())
	}

	// The buffer reaches its minimum capacity after the second step
	if exp.Updates() != 9 || len(agent.learned) != 9 {
		t.Errorf("updates: want(9) have(%v, %v)", exp.Updates(),
			len(agent.learned))
	}
	for i, n := range agent.learned {
		if n != 4 {
			t.Errorf("learn %v: want batch of 4 have(%v)", i, n)
		}
	}

	if len(agent.saved) != 3 {
		t.Errorf("checkpoints: want(3) have(%v)", agent.saved)
	}

	if exp.Episodes() != 3 {
		t.Errorf("episodes: want(3) have(%v)", exp.Episodes())
	}
	if len(mean.Data()) != 10 {
		t.Errorf("tracked steps: want(10) have(%v)", len(mean.Data()))
	}
	if len(ret.Data()) != 2 {
		t.Errorf("tracked returns: want(2) have(%v)", len(ret.Data()))
	}

	if err := exp.Save(); err != nil {
		t.Fatal(err)
	}
}

func TestOnlineCancel(t *testing.T) {
	agent := &fakeAgent{batchSize: 2}
	exp, err := NewOnline(newSim(t, 2), agent, newReplay(t, 2, 2, 10), 100)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := exp.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled have(%v)", err)
	}
	if exp.Steps() != 0 {
		t.Errorf("steps after cancel: want(0) have(%v)", exp.Steps())
	}
}

func TestNewOnlineErrors(t *testing.T) {
	sim := newSim(t, 2)
	if _, err := NewOnline(sim, &fakeAgent{batchSize: 2},
		newReplay(t, 2, 2, 10), 0); err == nil {
		t.Error("expected error for zero steps")
	}
	if _, err := NewOnline(sim, &fakeAgent{batchSize: 3},
		newReplay(t, 2, 2, 10), 10); err == nil {
		t.Error("expected error for mismatched batch sizes")
	}
}

func TestOnlineDeepQ(t *testing.T) {
	sim := newSim(t, 8)
	config := deepq.DefaultConfig(sim.ActionSpace(), []int{16}, 8)
	config.TargetUpdateInterval = 5
	agent, err := deepq.New(config, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer agent.Close()

	file := filepath.Join(t.TempDir(), "model.bin")
	check, err := checkpointer.NewNStep(10, agent, checkpointer.Fixed(file))
	if err != nil {
		t.Fatal(err)
	}

	exp, err := NewOnline(sim, agent, newReplay(t, 8, 16, 200), 30,
		WithEnder(environment.NewStepLimit(sim.Config().TimeSlices)),
		WithCheckpointers(check),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if agent.UpdateCount() != exp.Updates() || exp.Updates() != 29 {
		t.Errorf("updates: want(29) have(%v, %v)", exp.Updates(),
			agent.UpdateCount())
	}
	if agent.Epsilon() >= config.Epsilon {
		t.Errorf("epsilon did not decay: %v", agent.Epsilon())
	}
	if err := agent.LoadParameters(file); err != nil {
		t.Errorf("checkpoint not loadable: %v", err)
	}
}
