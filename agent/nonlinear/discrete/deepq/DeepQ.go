// Package deepq implements a deep Q-learning agent that learns which
// matching radius to use in each state of a dispatch system.
package deepq

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/samuelfneumann/matchradius/agent"
	"github.com/samuelfneumann/matchradius/initwfn"
	"github.com/samuelfneumann/matchradius/monitor"
	"github.com/samuelfneumann/matchradius/network"
	"github.com/samuelfneumann/matchradius/solver"
	ts "github.com/samuelfneumann/matchradius/timestep"
	"github.com/samuelfneumann/matchradius/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MaxPolicies is the number of forward networks, one per batch size,
// that a DeepQ keeps for action selection. When a new batch size is
// seen and the cache is full, the network of the least recently
// created batch size is closed.
const MaxPolicies = 8

var _ agent.GreedyPolicy = (*DeepQ)(nil)

// DeepQ implements the DQN algorithm with the MSE loss and hard target
// network updates.
//
// The agent keeps an eval network, trained by gradient descent, and a
// target network which provides the bootstrap target and is
// overwritten with the weights of the eval network every
// TargetUpdateInterval calls to Learn. A DeepQ is not safe for
// concurrent use.
type DeepQ struct {
	actionSpace []float64
	numActions  int
	batchSize   int
	gamma       float64

	epsilon      float64
	epsilonMin   float64
	epsilonDecay float64

	// Network whose weights are adapted. This is the eval network.
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     G.Solver

	// Network that provides the update target for a batch of inputs
	targetNet   network.NeuralNet
	targetNetVM G.VM

	// Forward-only copies of trainNet used for action selection, one per
	// batch size seen by ChooseAction. Gorgonia graphs have a fixed
	// input shape, so each batch size needs its own graph. At most
	// MaxPolicies are kept; policyOrder holds their batch sizes oldest
	// first.
	policies    map[int]*policyNet
	policyOrder []int

	targetUpdateInterval int
	updates              int // Completed calls to Learn
	losses               []float64

	selectedActions *G.Node // One-hot actions taken at the states

	// nextStateActionValues is the input node in the graph of trainNet
	// that is given the action values of the next state:
	//
	// Q(s, a) <- r + γ * max[Q(s', a')]
	//
	// It provides Q(s', a') for all a' in s' and is computed by
	// targetNet. Since it is an input node, no gradient flows through
	// the update target.
	nextStateActionValues *G.Node
	rewards               *G.Node
	discounts             *G.Node
	discountBacking       []float64
	lossVal               G.Value

	rng     *rand.Rand
	monitor monitor.Writer
	logger  logr.Logger
}

type policyNet struct {
	net network.NeuralNet
	vm  G.VM
}

// Option configures optional collaborators of a DeepQ agent
type Option func(*DeepQ)

// WithMonitor sets the Writer that training metrics are emitted to.
// By default metrics are discarded.
func WithMonitor(w monitor.Writer) Option {
	return func(d *DeepQ) {
		d.monitor = w
	}
}

// WithLogger sets the logger of the agent. By default nothing is
// logged.
func WithLogger(l logr.Logger) Option {
	return func(d *DeepQ) {
		d.logger = l
	}
}

// WithSource sets the source of randomness used for exploration. By
// default the agent draws from a source seeded with the seed given to
// New.
func WithSource(src rand.Source) Option {
	return func(d *DeepQ) {
		d.rng = rand.New(src)
	}
}

// New creates and returns a new DeepQ agent
func New(config Config, seed uint64, opts ...Option) (*DeepQ, error) {
	// Ensure the configuration is valid
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Extract configuration variables
	batchSize := config.BatchSize
	numActions := config.NumActions()
	hiddenSizes := config.Layers
	biases := make([]bool, len(hiddenSizes))
	for i := range biases {
		biases[i] = true
	}

	init := config.InitWFn
	if init == nil {
		var err error
		if init, err = initwfn.NewGlorotU(1.0); err != nil {
			return nil, fmt.Errorf("new: could not create weight "+
				"initializer: %v", err)
		}
	}

	// The loss is already averaged over the batch, so the solver does
	// not rescale gradients
	var s *solver.Solver
	if config.Solver == nil {
		var err error
		if s, err = solver.NewDefaultAdam(config.LearningRate, 1); err != nil {
			return nil, fmt.Errorf("new: could not create solver: %v", err)
		}
	} else {
		s = config.Solver.Clone()
	}

	// Create a training network which learns the weights
	gTrain := G.NewGraph()
	trainNet, err := network.NewMultiHeadMLP(
		ts.Features,
		batchSize,
		numActions,
		gTrain,
		hiddenSizes,
		biases,
		init.InitWFn(),
		network.ReLUs(len(hiddenSizes)),
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create eval network: %v", err)
	}

	// Create the target network which provides the update target
	targetNet, err := trainNet.Clone()
	if err != nil {
		msg := "new: could not create target network: %v"
		return nil, fmt.Errorf(msg, err)
	}
	targetNetVM := G.NewTapeMachine(targetNet.Graph())

	// Create nodes to compute the update target: r + γ * max[Q(s', a')]
	nextStateActionValues := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("targetActionVals"))
	rewards := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("reward"))
	discounts := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("discount"))

	// Compute the update target
	updateTarget := G.Must(G.Max(nextStateActionValues, 1))
	updateTarget = G.Must(G.HadamardProd(updateTarget, discounts))
	updateTarget = G.Must(G.Add(updateTarget, rewards))

	// Action selected in the previous state. This is needed to compute
	// the loss using the correct action value since the network outputs N
	// action values, one for each action
	selectedActions := G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(batchSize, numActions),
	)
	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the Mean Squarred TD error
	losses := G.Must(G.Sub(updateTarget, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	discountBacking := make([]float64, batchSize)
	for i := range discountBacking {
		discountBacking[i] = config.Gamma
	}

	d := &DeepQ{
		actionSpace:           append([]float64(nil), config.ActionSpace...),
		numActions:            numActions,
		batchSize:             batchSize,
		gamma:                 config.Gamma,
		epsilon:               config.Epsilon,
		epsilonMin:            config.EpsilonMin,
		epsilonDecay:          config.EpsilonDecay,
		trainNet:              trainNet,
		solver:                s.Solver,
		targetNet:             targetNet,
		targetNetVM:           targetNetVM,
		policies:              make(map[int]*policyNet),
		targetUpdateInterval:  config.TargetUpdateInterval,
		selectedActions:       selectedActions,
		nextStateActionValues: nextStateActionValues,
		rewards:               rewards,
		discounts:             discounts,
		discountBacking:       discountBacking,
		rng:                   rand.New(rand.NewSource(seed)),
		monitor:               monitor.Discard,
		logger:                logr.Discard(),
	}

	G.Read(cost, &d.lossVal)

	// Compute the gradient with respect to the Mean Squarred TD error
	_, err = G.Grad(cost, trainNet.Learnables()...)
	if err != nil {
		msg := fmt.Sprintf("new: could not compute gradient: %v", err)
		panic(msg)
	}

	// Compile the trainNet graph into a VM
	d.trainNetVM = G.NewTapeMachine(
		gTrain,
		G.BindDualValues(trainNet.Learnables()...),
	)

	for _, opt := range opts {
		opt(d)
	}

	if err := d.monitor.AddHParams(config.HParams()); err != nil {
		d.logger.Error(err, "could not record hyperparameters")
	}
	d.logger.Info("created agent", "actions", numActions, "layers",
		hiddenSizes, "batchSize", batchSize)

	return d, nil
}

// ChooseAction returns one action index per state using the
// ε-greedy policy of the eval network. The greedy action of each state
// is the first action of maximal value. Each state is then,
// independently, given a uniform random action with probability ε.
// ChooseAction does not change ε.
func (d *DeepQ) ChooseAction(states []ts.State) ([]int, error) {
	actions, err := d.Greedy(states)
	if err != nil {
		return nil, fmt.Errorf("chooseAction: %v", err)
	}

	for i := range actions {
		if d.rng.Float64() < d.epsilon {
			actions[i] = d.rng.Intn(d.numActions)
		}
	}
	return actions, nil
}

// Greedy returns the greedy action index of the eval network for each
// state
func (d *DeepQ) Greedy(states []ts.State) ([]int, error) {
	qValues, err := d.forward(states)
	if err != nil {
		return nil, fmt.Errorf("greedy: %v", err)
	}
	return floatutils.RowArgmax(qValues, d.numActions), nil
}

// QValues returns the action values predicted by the eval network,
// one row of NumActions() values per state
func (d *DeepQ) QValues(states []ts.State) ([][]float64, error) {
	qValues, err := d.forward(states)
	if err != nil {
		return nil, fmt.Errorf("qValues: %v", err)
	}

	rows := make([][]float64, len(states))
	for i := range rows {
		rows[i] = qValues[i*d.numActions : (i+1)*d.numActions]
	}
	return rows, nil
}

// forward runs the eval network on states without tracking gradients
// and returns a copy of its output in row major order
func (d *DeepQ) forward(states []ts.State) ([]float64, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("empty batch of states")
	}

	p, err := d.policy(len(states))
	if err != nil {
		return nil, err
	}

	// The policy network may be stale since it is only synced on use
	if err := p.net.Set(d.trainNet); err != nil {
		panic(fmt.Sprintf("forward: could not sync policy network: %v", err))
	}

	if err := p.net.SetInput(ts.Flatten(states)); err != nil {
		return nil, err
	}
	if err := p.vm.RunAll(); err != nil {
		panic(fmt.Sprintf("forward: could not run policy network: %v", err))
	}
	defer p.vm.Reset()

	out := p.net.Output().Data().([]float64)
	return append([]float64(nil), out...), nil
}

// policy returns the forward-only network for batches of batchSize
// states, creating it if needed
func (d *DeepQ) policy(batchSize int) (*policyNet, error) {
	if p, ok := d.policies[batchSize]; ok {
		return p, nil
	}

	net, err := d.trainNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("could not create policy network: %v", err)
	}

	if len(d.policyOrder) >= MaxPolicies {
		oldest := d.policyOrder[0]
		d.policyOrder = d.policyOrder[1:]
		if err := d.policies[oldest].vm.Close(); err != nil {
			d.logger.Error(err, "could not close policy network",
				"batchSize", oldest)
		}
		delete(d.policies, oldest)
	}

	p := &policyNet{net: net, vm: G.NewTapeMachine(net.Graph())}
	d.policies[batchSize] = p
	d.policyOrder = append(d.policyOrder, batchSize)
	return p, nil
}

// Learn performs a single DQN update with a batch of transitions. The
// batch must hold exactly BatchSize transitions and every action must
// be in [0, NumActions()). On a precondition violation the agent is
// left unchanged and an error is returned.
func (d *DeepQ) Learn(batch ts.Batch) error {
	if err := batch.Validate(d.numActions); err != nil {
		return fmt.Errorf("learn: %v", err)
	}
	if batch.Len() != d.batchSize {
		return fmt.Errorf("learn: invalid batch size\n\twant(%v)\n\thave(%v)",
			d.batchSize, batch.Len())
	}

	// Update the target network by setting its weights to the eval
	// network's weights
	if d.updates%d.targetUpdateInterval == 0 {
		if err := d.targetNet.Set(d.trainNet); err != nil {
			panic(fmt.Sprintf("learn: could not update target network: %v",
				err))
		}
		d.logger.Info("synced target network", "step", d.updates)
	}

	// Previous action one-hot vectors
	oneHot := make([]float64, d.batchSize*d.numActions)
	for i, a := range batch.Actions {
		oneHot[i*d.numActions+a] = 1.0
	}
	prevActions := tensor.New(
		tensor.WithShape(d.batchSize, d.numActions),
		tensor.WithBacking(oneHot),
	)
	if err := G.Let(d.selectedActions, prevActions); err != nil {
		panic(fmt.Sprintf("learn: could not set selected actions: %v", err))
	}

	// Predict the action values in the states
	if err := d.trainNet.SetInput(ts.Flatten(batch.States)); err != nil {
		panic(fmt.Sprintf("learn: could not set trainNet input: %v", err))
	}

	// Predict the action values in the next states
	if err := d.targetNet.SetInput(ts.Flatten(batch.NextStates)); err != nil {
		panic(fmt.Sprintf("learn: could not set target net input: %v", err))
	}

	// Compute the next state-action values
	if err := d.targetNetVM.RunAll(); err != nil {
		panic(fmt.Sprintf("learn: could not run target network: %v", err))
	}

	// Set the action values for the actions in the next state. The
	// values are copied since the target VM owns its output.
	nextValues := append([]float64(nil),
		d.targetNet.Output().Data().([]float64)...)
	d.targetNetVM.Reset()
	nextValuesTensor := tensor.New(
		tensor.WithShape(d.batchSize, d.numActions),
		tensor.WithBacking(nextValues),
	)
	if err := G.Let(d.nextStateActionValues, nextValuesTensor); err != nil {
		panic(fmt.Sprintf("learn: could not set next state-action values: %v",
			err))
	}

	// Set the reward for the current action
	rewardTensor := tensor.New(
		tensor.WithBacking(append([]float64(nil), batch.Rewards...)),
		tensor.WithShape(d.batchSize),
	)
	if err := G.Let(d.rewards, rewardTensor); err != nil {
		panic(fmt.Sprintf("learn: could not set reward: %v", err))
	}

	// Set the discount for the next action value
	discountTensor := tensor.New(
		tensor.WithBacking(append([]float64(nil), d.discountBacking...)),
		tensor.WithShape(d.batchSize),
	)
	if err := G.Let(d.discounts, discountTensor); err != nil {
		panic(fmt.Sprintf("learn: could not set discount: %v", err))
	}

	// Run the learning step
	if err := d.trainNetVM.RunAll(); err != nil {
		panic(fmt.Sprintf("learn: could not run eval network: %v", err))
	}
	loss := scalar(d.lossVal)
	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		panic(fmt.Sprintf("learn: could not step solver: %v", err))
	}
	d.trainNetVM.Reset()

	d.record(loss, batch.Rewards)

	// Decay epsilon
	d.epsilon = floatutils.Clip(d.epsilon-d.epsilonDecay, d.epsilonMin, 1.0)
	d.updates++

	return nil
}

// record appends the loss to the loss history and emits the metrics of
// the current update to the monitor
func (d *DeepQ) record(loss float64, rewards []float64) {
	d.losses = append(d.losses, loss)
	step := d.updates

	d.logger.V(1).Info("learn", "step", step, "loss", loss, "epsilon",
		d.epsilon)

	if err := d.monitor.AddScalar("Loss", loss, step); err != nil {
		d.logger.Error(err, "could not record loss", "step", step)
	}
	if err := d.monitor.AddScalar("Reward", stat.Mean(rewards, nil),
		step); err != nil {
		d.logger.Error(err, "could not record reward", "step", step)
	}
	if err := d.monitor.AddScalar("Epsilon", d.epsilon, step); err != nil {
		d.logger.Error(err, "could not record epsilon", "step", step)
	}

	for _, param := range d.trainNet.Parameters() {
		if err := d.monitor.AddHistogram(param.Name, param.Data,
			step); err != nil {
			d.logger.Error(err, "could not record histogram", "step", step,
				"parameter", param.Name)
		}
	}

	if err := d.monitor.Flush(); err != nil {
		d.logger.Error(err, "could not flush monitor", "step", step)
	}
}

// scalar returns the single element of a scalar Gorgonia value
func scalar(v G.Value) float64 {
	switch data := v.Data().(type) {
	case float64:
		return data
	case []float64:
		return data[0]
	}
	panic(fmt.Sprintf("scalar: unexpected value type %T", v.Data()))
}

// SaveParameters saves the parameters of the eval network to path
func (d *DeepQ) SaveParameters(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saveParameters: %v", err)
	}

	if err := network.Save(f, d.trainNet); err != nil {
		f.Close()
		return fmt.Errorf("saveParameters: %v", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("saveParameters: %v", err)
	}

	d.logger.Info("saved parameters", "path", path, "step", d.updates)
	return nil
}

// LoadParameters loads parameters saved with SaveParameters into the
// eval network and copies them into the target network, so that both
// networks are synchronized afterwards.
func (d *DeepQ) LoadParameters(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("loadParameters: %v", err)
	}
	defer f.Close()

	if err := network.Load(f, d.trainNet); err != nil {
		return fmt.Errorf("loadParameters: %v", err)
	}
	if err := d.targetNet.Set(d.trainNet); err != nil {
		panic(fmt.Sprintf("loadParameters: could not update target "+
			"network: %v", err))
	}

	d.logger.Info("loaded parameters", "path", path)
	return nil
}

// Epsilon returns the current exploration probability
func (d *DeepQ) Epsilon() float64 {
	return d.epsilon
}

// SetEpsilon sets the exploration probability, clipped to [0, 1]
func (d *DeepQ) SetEpsilon(ε float64) {
	d.epsilon = floatutils.Clip(ε, 0.0, 1.0)
}

// UpdateCount returns the number of completed calls to Learn
func (d *DeepQ) UpdateCount() int {
	return d.updates
}

// LossHistory returns the loss of every call to Learn so far
func (d *DeepQ) LossHistory() []float64 {
	return append([]float64(nil), d.losses...)
}

// NumActions returns the number of actions the agent chooses between
func (d *DeepQ) NumActions() int {
	return d.numActions
}

// ActionSpace returns the matching radius of each action index
func (d *DeepQ) ActionSpace() []float64 {
	return append([]float64(nil), d.actionSpace...)
}

// BatchSize returns the number of transitions Learn expects
func (d *DeepQ) BatchSize() int {
	return d.batchSize
}

// EvalParameters returns a copy of the eval network's parameters
func (d *DeepQ) EvalParameters() []network.Parameter {
	return d.trainNet.Parameters()
}

// TargetParameters returns a copy of the target network's parameters
func (d *DeepQ) TargetParameters() []network.Parameter {
	return d.targetNet.Parameters()
}

// Close closes all VMs of the agent. The monitor is owned by the caller
// and is not closed.
func (d *DeepQ) Close() error {
	var firstErr error
	closeVM := func(vm G.VM) {
		if err := vm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	closeVM(d.trainNetVM)
	closeVM(d.targetNetVM)
	for _, p := range d.policies {
		closeVM(p.vm)
	}
	d.policies = make(map[int]*policyNet)
	d.policyOrder = nil

	if firstErr != nil {
		return fmt.Errorf("close: %v", firstErr)
	}
	return nil
}
