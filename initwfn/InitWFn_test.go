package initwfn

import (
	"testing"
)

func TestNew(t *testing.T) {
	for _, name := range []Type{"glorotu", GlorotN, HeU, "HEN", Uniform,
		Zeroes, Constant} {
		init, err := New(name, 1.0)
		if err != nil {
			t.Errorf("new(%v): %v", name, err)
			continue
		}
		if init.InitWFn() == nil {
			t.Errorf("new(%v): nil gorgonia InitWFn", name)
		}
	}

	if _, err := New("orthogonal", 1.0); err == nil {
		t.Error("new: expected error for unknown initializer")
	}
}

func TestZeroesType(t *testing.T) {
	init, err := NewZeroes()
	if err != nil {
		t.Fatal(err)
	}
	if init.Type() != Zeroes {
		t.Errorf("type: want(%v) have(%v)", Zeroes, init.Type())
	}
}
