// Package network implements feed forward neural network function
// approximators on top of Gorgonia computational graphs.
//
// A NeuralNet only populates a computational graph. It does not own a
// VM: callers compile the graph returned by Graph() into a VM, set the
// input with SetInput(), run the VM and then read Output().
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose input batch size is fixed at
// construction.
type NeuralNet interface {
	// Graph returns the computational graph the network populates
	Graph() *G.ExprGraph

	// Clone returns a copy of the network with the same weights in a
	// new computational graph
	Clone() (NeuralNet, error)

	// CloneWithBatch is like Clone, but the returned network takes
	// batches of the argument size as input
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the input of the network to a batch of feature
	// vectors in row major order
	SetInput([]float64) error

	// Set copies the weights of the argument network into this one
	Set(NeuralNet) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Parameters returns a copy of every learnable tensor, by name
	Parameters() []Parameter

	// SetParameters overwrites the weights of the network
	SetParameters([]Parameter) error

	Output() G.Value
	Prediction() *G.Node
}
