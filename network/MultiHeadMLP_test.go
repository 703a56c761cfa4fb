package network

import (
	"bytes"
	"testing"

	G "gorgonia.org/gorgonia"
)

// newTestMLP returns a 2 -> hidden... -> outputs ReLU MLP and a VM for
// its graph
func newTestMLP(t *testing.T, batch, outputs int, hidden []int,
	init G.InitWFn) (NeuralNet, G.VM) {
	t.Helper()

	biases := make([]bool, len(hidden))
	for i := range biases {
		biases[i] = true
	}

	net, err := NewMultiHeadMLP(2, batch, outputs, G.NewGraph(), hidden,
		biases, init, ReLUs(len(hidden)))
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	return net, G.NewTapeMachine(net.Graph())
}

// run runs a forward pass and returns a copy of the output
func run(t *testing.T, net NeuralNet, vm G.VM, input []float64) []float64 {
	t.Helper()

	if err := net.SetInput(input); err != nil {
		t.Fatalf("could not set input: %v", err)
	}
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run vm: %v", err)
	}
	defer vm.Reset()

	return append([]float64(nil), net.Output().Data().([]float64)...)
}

func TestNewMultiHeadMLPErrors(t *testing.T) {
	g := G.NewGraph()
	init := G.GlorotU(1.0)

	if _, err := NewMultiHeadMLP(2, 1, 3, g, []int{4, 4}, []bool{true},
		init, ReLUs(2)); err == nil {
		t.Error("expected error for mismatched biases")
	}
	if _, err := NewMultiHeadMLP(2, 1, 3, g, []int{4}, []bool{true},
		init, ReLUs(2)); err == nil {
		t.Error("expected error for mismatched activations")
	}
	if _, err := NewMultiHeadMLP(2, 1, 0, g, []int{4}, []bool{true},
		init, ReLUs(1)); err == nil {
		t.Error("expected error for zero outputs")
	}
	if _, err := NewMultiHeadMLP(2, 1, 3, g, []int{0}, []bool{true},
		init, ReLUs(1)); err == nil {
		t.Error("expected error for empty hidden layer")
	}
}

func TestForward(t *testing.T) {
	// All weights 1, biases 0: each hidden unit computes relu(x0 + x1)
	// and each output sums the 3 hidden units
	net, vm := newTestMLP(t, 2, 4, []int{3}, G.ValuesOf(1.0))
	defer vm.Close()

	out := run(t, net, vm, []float64{1, 2, -1, -2})
	if len(out) != 2*4 {
		t.Fatalf("output size: want(8) have(%v)", len(out))
	}

	shape := net.Output().Shape()
	if shape[0] != 2 || shape[1] != 4 {
		t.Errorf("output shape: want((2, 4)) have(%v)", shape)
	}

	for i := 0; i < 4; i++ {
		if out[i] != 9 {
			t.Errorf("row 0 output %v: want(9) have(%v)", i, out[i])
		}
		if out[4+i] != 0 {
			t.Errorf("row 1 output %v: want(0) have(%v)", i, out[4+i])
		}
	}
}

func TestParameterNames(t *testing.T) {
	net, vm := newTestMLP(t, 1, 5, []int{8, 4}, G.GlorotU(1.0))
	defer vm.Close()

	want := []struct {
		name  string
		shape []int
	}{
		{"layers.0.weight", []int{2, 8}},
		{"layers.0.bias", []int{1, 8}},
		{"layers.1.weight", []int{8, 4}},
		{"layers.1.bias", []int{1, 4}},
		{"out.weight", []int{4, 5}},
		{"out.bias", []int{1, 5}},
	}

	params := net.Parameters()
	if len(params) != len(want) {
		t.Fatalf("number of parameters: want(%v) have(%v)", len(want),
			len(params))
	}
	for i, p := range params {
		if p.Name != want[i].name {
			t.Errorf("parameter %v: want name %v have(%v)", i, want[i].name,
				p.Name)
		}
		if len(p.Shape) != 2 || p.Shape[0] != want[i].shape[0] ||
			p.Shape[1] != want[i].shape[1] {
			t.Errorf("parameter %v: want shape %v have(%v)", p.Name,
				want[i].shape, p.Shape)
		}
	}
}

func TestSetCopiesWithoutAliasing(t *testing.T) {
	source, sourceVM := newTestMLP(t, 1, 3, []int{6}, G.GlorotU(1.0))
	defer sourceVM.Close()
	dest, destVM := newTestMLP(t, 1, 3, []int{6}, G.Zeroes())
	defer destVM.Close()

	if err := dest.Set(source); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !ParametersEqual(dest.Parameters(), source.Parameters()) {
		t.Fatal("set: parameters differ after copy")
	}
	snapshot := dest.Parameters()

	// Changing the source must not change the destination
	params := source.Parameters()
	for i := range params {
		for j := range params[i].Data {
			params[i].Data[j] += 1.0
		}
	}
	if err := source.SetParameters(params); err != nil {
		t.Fatalf("setparameters: %v", err)
	}
	if !ParametersEqual(dest.Parameters(), snapshot) {
		t.Error("set: destination aliases source weights")
	}
}

func TestCloneWithBatch(t *testing.T) {
	net, vm := newTestMLP(t, 1, 3, []int{5}, G.GlorotU(1.0))
	defer vm.Close()

	clone, err := net.CloneWithBatch(2)
	if err != nil {
		t.Fatalf("clonewithbatch: %v", err)
	}
	if clone.BatchSize() != 2 {
		t.Errorf("batch size: want(2) have(%v)", clone.BatchSize())
	}
	cloneVM := G.NewTapeMachine(clone.Graph())
	defer cloneVM.Close()

	single := run(t, net, vm, []float64{3, 7})
	batched := run(t, clone, cloneVM, []float64{3, 7, 3, 7})
	for i := range single {
		if single[i] != batched[i] || single[i] != batched[3+i] {
			t.Errorf("output %v: want(%v) have(%v, %v)", i, single[i],
				batched[i], batched[3+i])
		}
	}
}

func TestSetInputLength(t *testing.T) {
	net, vm := newTestMLP(t, 2, 3, []int{4}, G.GlorotU(1.0))
	defer vm.Close()

	if err := net.SetInput([]float64{1, 2}); err == nil {
		t.Error("expected error for short input")
	}
}

func TestSaveLoad(t *testing.T) {
	source, sourceVM := newTestMLP(t, 1, 4, []int{8, 8}, G.GlorotU(1.0))
	defer sourceVM.Close()
	dest, destVM := newTestMLP(t, 3, 4, []int{8, 8}, G.Zeroes())
	defer destVM.Close()

	var buf bytes.Buffer
	if err := Save(&buf, source); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Load(&buf, dest); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ParametersEqual(source.Parameters(), dest.Parameters()) {
		t.Error("load: parameters differ after round trip")
	}
}

func TestLoadMismatch(t *testing.T) {
	source, sourceVM := newTestMLP(t, 1, 4, []int{8}, G.GlorotU(1.0))
	defer sourceVM.Close()
	dest, destVM := newTestMLP(t, 1, 5, []int{8}, G.Zeroes())
	defer destVM.Close()

	before := dest.Parameters()

	var buf bytes.Buffer
	if err := Save(&buf, source); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Load(&buf, dest); err == nil {
		t.Error("load: expected error for mismatched architecture")
	}
	if !ParametersEqual(before, dest.Parameters()) {
		t.Error("load: failed load modified the network")
	}

	if err := Load(bytes.NewReader([]byte("not a checkpoint")), dest); err == nil {
		t.Error("load: expected error for corrupted checkpoint")
	}
}

func BenchmarkForward(b *testing.B) {
	net, err := NewMultiHeadMLP(2, 64, 9, G.NewGraph(), []int{64, 64},
		[]bool{true, true}, G.GlorotU(1.0), ReLUs(2))
	if err != nil {
		b.Fatal(err)
	}
	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	input := make([]float64, 64*2)
	for i := 0; i < b.N; i++ {
		net.SetInput(input)
		vm.RunAll()
		vm.Reset()
	}
}
