package network

import (
	"encoding/gob"
	"fmt"
	"io"

	G "gorgonia.org/gorgonia"
)

// Parameter is a named copy of one learnable tensor of a NeuralNet.
// Data holds the tensor's elements in row major order.
type Parameter struct {
	Name  string
	Shape []int
	Data  []float64
}

// Len returns the number of elements in the Parameter
func (p Parameter) Len() int {
	return len(p.Data)
}

// Equal returns whether two Parameters have the same name, shape and
// exactly the same values
func (p Parameter) Equal(other Parameter) bool {
	if p.Name != other.Name || len(p.Shape) != len(other.Shape) ||
		len(p.Data) != len(other.Data) {
		return false
	}
	for i := range p.Shape {
		if p.Shape[i] != other.Shape[i] {
			return false
		}
	}
	for i := range p.Data {
		if p.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// matches returns an error if the Parameter cannot be written into
// the node
func (p Parameter) matches(n *G.Node) error {
	if p.Name != n.Name() {
		return fmt.Errorf("parameter name mismatch\n\twant(%v)\n\thave(%v)",
			n.Name(), p.Name)
	}

	shape := n.Shape()
	if len(shape) != len(p.Shape) {
		return fmt.Errorf("shape mismatch for %v\n\twant(%v)\n\thave(%v)",
			p.Name, shape, p.Shape)
	}
	for i := range shape {
		if shape[i] != p.Shape[i] {
			return fmt.Errorf("shape mismatch for %v\n\twant(%v)\n\thave(%v)",
				p.Name, shape, p.Shape)
		}
	}

	if len(p.Data) != shape.TotalSize() {
		return fmt.Errorf("invalid number of values for %v\n\twant(%v)"+
			"\n\thave(%v)", p.Name, shape.TotalSize(), len(p.Data))
	}
	return nil
}

// ParametersEqual returns whether two parameter lists are identical
func ParametersEqual(a, b []Parameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Save gob-encodes the parameters of net to w
func Save(w io.Writer, net NeuralNet) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(net.Parameters()); err != nil {
		return fmt.Errorf("save: could not encode parameters: %v", err)
	}
	return nil
}

// Load decodes parameters written by Save from r into net. The
// decoded parameters must match the architecture of net; on any
// mismatch net is left unchanged and an error is returned.
func Load(r io.Reader, net NeuralNet) error {
	dec := gob.NewDecoder(r)

	var params []Parameter
	if err := dec.Decode(&params); err != nil {
		return fmt.Errorf("load: could not decode parameters: %v", err)
	}

	if err := net.SetParameters(params); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	return nil
}
