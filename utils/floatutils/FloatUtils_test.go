package floatutils

import (
	"math"
	"testing"
)

func TestRowArgmax(t *testing.T) {
	data := []float64{
		1, 3, 2,
		-1, -5, -1,
		0, 0, 7,
	}
	want := []int{1, 0, 2}

	got := RowArgmax(data, 3)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %v: want(%v) have(%v)", i, want[i], got[i])
		}
	}
}

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{2, 1, 2})
	if max != 2 {
		t.Errorf("max: want(2) have(%v)", max)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Errorf("indices: want([0 2]) have(%v)", indices)
	}
}

func TestAllFinite(t *testing.T) {
	if !AllFinite([]float64{0, 1, -3}) {
		t.Error("finite values reported as non-finite")
	}
	if AllFinite([]float64{0, math.NaN()}) {
		t.Error("NaN reported as finite")
	}
	if AllFinite([]float64{math.Inf(-1)}) {
		t.Error("Inf reported as finite")
	}
}
