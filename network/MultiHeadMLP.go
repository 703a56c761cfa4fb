package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted. For a
// Q-value approximator, each output predicts the value of one action.
type multiHeadMLP struct {
	g          *G.ExprGraph
	layers     []Layer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Architecture, needed to rebuild the network in another graph
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes, The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// layer is always added such that given any input, the output will
// be outputs. The final layer also contains a bias unit, and bias units
// for each additional hidden layer is specified by biases. The final
// layer will contain no activations, and the activations of additional
// hidden layers is specified by activations. The parameter init
// determines the weight initialization scheme, biases are always
// initialized to zero.
//
// The function works such that for index i, hiddenSizes[i] is the
// number of nodes in hidden layer i; biases[i] is true if the
// hidden layer will contain a bias unit and false otherwise; and
// activations[i] is the activation function for hidden layer i.
//
// Learnables are named layers.<i>.weight and layers.<i>.bias for
// hidden layer i and out.weight and out.bias for the final layer.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmultiheadmlp: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newmultiheadmlp: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	if features < 1 || batch < 1 || outputs < 1 {
		msg := "newmultiheadmlp: features (%v), batch (%v) and outputs " +
			"(%v) must be positive"
		return nil, fmt.Errorf(msg, features, batch, outputs)
	}
	for i, size := range hiddenSizes {
		if size < 1 {
			msg := "newmultiheadmlp: hidden layer %v must have a positive " +
				"number of units\n\twant(>0)\n\thave(%v)"
			return nil, fmt.Errorf(msg, i, size)
		}
	}

	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	layers := make([]Layer, 0, len(hiddenSizes)+1)
	in := features
	for i, out := range hiddenSizes {
		prefix := fmt.Sprintf("layers.%d", i)
		layers = append(layers, newFCLayer(g, prefix, in, out, biases[i],
			init, activations[i]))
		in = out
	}

	// Final linear layer predicting one value per output head
	layers = append(layers, newFCLayer(g, "out", in, outputs, true, init,
		Identity()))

	network := multiHeadMLP{
		g:           g,
		layers:      layers,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: append([]int(nil), hiddenSizes...),
		biases:      append([]bool(nil), biases...),
		activations: append([]*Activation(nil), activations...),
	}

	if _, err := network.fwd(input); err != nil {
		msg := "newmultiheadmlp: could not compute forward pass: %v"
		return nil, fmt.Errorf(msg, err)
	}

	return &network, nil
}

// Graph returns the computational graph of the multiHeadMLP.
func (e *multiHeadMLP) Graph() *G.ExprGraph {
	return e.g
}

// Clone clones a multiHeadMLP
func (e *multiHeadMLP) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// CloneWithBatch clones a multiHeadMLP with a new input batch size.
// The clone lives in a new computational graph and does not share
// any weight memory with e.
func (e *multiHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	net, err := NewMultiHeadMLP(e.numInputs, batchSize, e.numOutputs,
		G.NewGraph(), e.hiddenSizes, e.biases, G.Zeroes(), e.activations)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}

	if err := net.Set(e); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not copy weights: %v",
			err)
	}
	return net, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *multiHeadMLP) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (e *multiHeadMLP) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs from the network
func (e *multiHeadMLP) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (e *multiHeadMLP) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of a multiHeadMLP to be equal to the
// weights of another NeuralNet. Weights are copied element by element
// into the existing tensors of dest, so that any VM compiled from
// dest's graph sees the new weights and dest never aliases source.
func (dest *multiHeadMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: invalid number of learnables\n\twant(%v)"+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i := range nodes {
		if !nodes[i].Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: shape mismatch for %v\n\twant(%v)"+
				"\n\thave(%v)", nodes[i].Name(), nodes[i].Shape(),
				sourceNodes[i].Shape())
		}

		src, err := float64Data(sourceNodes[i])
		if err != nil {
			return fmt.Errorf("set: %v", err)
		}
		dst, err := float64Data(nodes[i])
		if err != nil {
			return fmt.Errorf("set: %v", err)
		}
		copy(dst, src)
	}
	return nil
}

// Learnables returns the learnable nodes in a multiHeadMLP
func (e *multiHeadMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		e.learnables = e.computeLearnables()
	}
	return e.learnables
}

// computeLearnables computes all the learnables for the network
func (e *multiHeadMLP) computeLearnables() G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(e.layers))

	for i := range e.layers {
		learnables = append(learnables, e.layers[i].Weights())
		if bias := e.layers[i].Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return G.Nodes(learnables)
}

// Model returns the learnables nodes with their gradients.
func (e *multiHeadMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		e.model = G.NodesToValueGrads(e.Learnables())
	}
	return e.model
}

// Parameters returns a copy of each learnable tensor of the network,
// in the same order as Learnables()
func (e *multiHeadMLP) Parameters() []Parameter {
	learnables := e.Learnables()
	params := make([]Parameter, len(learnables))

	for i, node := range learnables {
		data, err := float64Data(node)
		if err != nil {
			panic(fmt.Sprintf("parameters: %v", err))
		}
		params[i] = Parameter{
			Name:  node.Name(),
			Shape: append([]int(nil), node.Shape()...),
			Data:  append([]float64(nil), data...),
		}
	}
	return params
}

// SetParameters overwrites the weights of the network with params.
// The names and shapes of params must match Parameters() exactly.
func (e *multiHeadMLP) SetParameters(params []Parameter) error {
	learnables := e.Learnables()
	if len(params) != len(learnables) {
		return fmt.Errorf("setparameters: invalid number of parameters"+
			"\n\twant(%v)\n\thave(%v)", len(learnables), len(params))
	}

	// Validate everything before writing anything so that a failed
	// call leaves the network unchanged
	for i, node := range learnables {
		if err := params[i].matches(node); err != nil {
			return fmt.Errorf("setparameters: %v", err)
		}
	}

	for i, node := range learnables {
		dst, err := float64Data(node)
		if err != nil {
			return fmt.Errorf("setparameters: %v", err)
		}
		copy(dst, params[i].Data)
	}
	return nil
}

// fwd performs the forward pass of the multiHeadMLP on the input
// node
func (e *multiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	inputShape := input.Shape()[len(input.Shape())-1]
	if inputShape != e.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", e.numInputs, inputShape)
	}

	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return pred, nil
}

// Output returns the output of the multiHeadMLP from the last run of
// a VM on its graph. The returned value is owned by the VM and may be
// overwritten on the next run.
func (e *multiHeadMLP) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the multiHeadMLP
func (e *multiHeadMLP) Prediction() *G.Node {
	return e.prediction
}

// float64Data returns the backing data of the value bound to a node
func float64Data(n *G.Node) ([]float64, error) {
	if n.Value() == nil {
		return nil, fmt.Errorf("node %v has no value", n.Name())
	}
	data, ok := n.Value().Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("node %v does not hold float64 data: %T",
			n.Name(), n.Value().Data())
	}
	return data, nil
}
