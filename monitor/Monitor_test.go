package monitor

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestRunDir(t *testing.T) {
	tests := []struct {
		layers  []int
		actions []float64
		want    string
	}{
		{
			[]int{64, 32},
			[]float64{2, 2.5, 3},
			filepath.Join("runs", "experiment_dqn_64_32_2.0_2.5_3.0"),
		},
		{
			[]int{8},
			[]float64{0.25},
			filepath.Join("runs", "experiment_dqn_8_0.25"),
		},
	}

	for _, test := range tests {
		if got := RunDir("runs", test.layers, test.actions); got != test.want {
			t.Errorf("rundir: want(%v) have(%v)", test.want, got)
		}
	}
}

func TestHistogram(t *testing.T) {
	hist := NewHistogram([]float64{0, 1, 2, 3, 4, 4}, 4)

	if hist.Count != 6 {
		t.Errorf("count: want(6) have(%v)", hist.Count)
	}
	if hist.Min != 0 || hist.Max != 4 {
		t.Errorf("range: want([0, 4]) have([%v, %v])", hist.Min, hist.Max)
	}
	if len(hist.Counts) != 4 || len(hist.Dividers) != 5 {
		t.Fatalf("bins: want(4 bins, 5 dividers) have(%v bins, %v dividers)",
			len(hist.Counts), len(hist.Dividers))
	}

	want := []float64{1, 1, 1, 3}
	total := 0.0
	for i := range want {
		total += hist.Counts[i]
		if hist.Counts[i] != want[i] {
			t.Errorf("bin %v: want(%v) have(%v)", i, want[i], hist.Counts[i])
		}
	}
	if total != 6 {
		t.Errorf("total: want(6) have(%v)", total)
	}
}

func TestHistogramEdgeCases(t *testing.T) {
	if hist := NewHistogram(nil, 10); hist.Count != 0 {
		t.Errorf("empty: want count 0 have(%v)", hist.Count)
	}

	hist := NewHistogram([]float64{3, 3, 3}, 10)
	if len(hist.Counts) != 1 || hist.Counts[0] != 3 {
		t.Errorf("constant: want([3]) have(%v)", hist.Counts)
	}

	hist = NewHistogram([]float64{7}, 10)
	if hist.Std != 0 {
		t.Errorf("single: want std 0 have(%v)", hist.Std)
	}

	hist = NewHistogram([]float64{1, math.NaN(), 2, math.Inf(1)}, 2)
	if hist.Count != 2 {
		t.Errorf("non-finite: want count 2 have(%v)", hist.Count)
	}
}

func TestFileWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	w, err := NewFileWriter(dir)
	if err != nil {
		t.Fatalf("newFileWriter: %v", err)
	}

	if err := w.AddHParams(map[string]interface{}{"lr": 0.0005}); err != nil {
		t.Fatalf("addHParams: %v", err)
	}
	for step := 0; step < 5; step++ {
		if err := w.AddScalar("Loss", 1/float64(step+1), step); err != nil {
			t.Fatalf("addScalar: %v", err)
		}
		if err := w.AddScalar("Reward", float64(step), step); err != nil {
			t.Fatalf("addScalar: %v", err)
		}
		if err := w.AddHistogram("out.weight", []float64{1, 2, 3},
			step); err != nil {
			t.Fatalf("addHistogram: %v", err)
		}
	}
	if err := w.AddScalar("Loss", math.NaN(), 5); err != nil {
		t.Fatalf("addScalar NaN: %v", err)
	}

	if got := len(w.Scalars("Loss")); got != 6 {
		t.Errorf("scalars: want(6) have(%v)", got)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if err := w.AddScalar("Loss", 1, 6); err == nil {
		t.Error("addScalar after close: expected error")
	}

	events, err := ReadEvents(filepath.Join(dir, EventsFile))
	if err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	if len(events) != 1+5*3+1 {
		t.Fatalf("events: want(17) have(%v)", len(events))
	}
	if events[0].Kind != HParamsEvent {
		t.Errorf("first event: want(%v) have(%v)", HParamsEvent,
			events[0].Kind)
	}
	last := events[len(events)-1]
	if last.Value == nil || !math.IsNaN(float64(*last.Value)) {
		t.Errorf("last event: want NaN value have(%v)", last.Value)
	}

	for _, file := range []string{ScalarsFile, LossFile, RewardFile} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Errorf("%v not rendered: %v", file, err)
		}
	}
}

func TestRenderPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.png")
	radii := [][]float64{
		{2, 2.5, 3},
		{3, 3.5, 6},
	}
	if err := RenderPolicy(path, radii); err != nil {
		t.Fatalf("renderPolicy: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("policy map not written: %v", err)
	}

	if err := RenderPolicy(path, [][]float64{{1, 2}, {1}}); err == nil {
		t.Error("renderPolicy: expected error for ragged policy")
	}
	if err := RenderPolicy(path, nil); err == nil {
		t.Error("renderPolicy: expected error for empty policy")
	}
}
