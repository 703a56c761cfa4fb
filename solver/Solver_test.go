package solver

import (
	"testing"
)

func TestNew(t *testing.T) {
	for _, typ := range []Type{Adam, "adam", Vanilla, RMSProp} {
		s, err := New(typ, 0.0005, 1)
		if err != nil {
			t.Errorf("new(%v): %v", typ, err)
			continue
		}
		if s.Solver == nil {
			t.Errorf("new(%v): nil gorgonia solver", typ)
		}
	}

	if _, err := New("lbfgs", 0.1, 1); err == nil {
		t.Error("new: expected error for unknown solver type")
	}
	if _, err := New(Adam, 0, 1); err == nil {
		t.Error("new: expected error for zero step size")
	}
}

func TestClone(t *testing.T) {
	s, err := NewDefaultAdam(0.001, 1)
	if err != nil {
		t.Fatal(err)
	}

	clone := s.Clone()
	if clone.Solver == s.Solver {
		t.Error("clone: gorgonia solver shared with original")
	}
	if clone.Config.(AdamConfig).StepSize != 0.001 {
		t.Errorf("clone: want step size 0.001 have(%v)",
			clone.Config.(AdamConfig).StepSize)
	}
}
