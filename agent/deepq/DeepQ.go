// Package deepq implements the deep Q-learning (DQN) algorithm
package deepq

import (
	"fmt"
	"os"

	"github.com/aunum/log"
	"github.com/samuelfneumann/lunardqn/agent"
	"github.com/samuelfneumann/lunardqn/agent/policy"
	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/expreplay"
	"github.com/samuelfneumann/lunardqn/network"
	ts "github.com/samuelfneumann/lunardqn/timestep"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DeepQ implements the deep Q-learning algorithm with experience
// replay and a target network, using the mean squared TD error as the
// loss.
//
// Three networks share the same architecture. The behaviour policy
// selects single actions. The training network learns from batches
// sampled from the replay buffer, and its weights are copied to the
// behaviour policy after each gradient step. The target network
// provides the bootstrap target r + γ max_a' Q(s', a') and is
// synchronized with the training network every TargetUpdateInterval
// gradient steps.
type DeepQ struct {
	behaviourPolicy   agent.EGreedyNNPolicy
	behaviourPolicyVM G.VM

	// Policy for learning weights that takes in batches of inputs
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     G.Solver

	// Network that provides the update target for a batch of inputs
	targetNet   network.NeuralNet
	targetNetVM G.VM

	// Variables to track target network updates
	tau                  float64
	targetUpdateInterval int
	gradientSteps        int

	learnEvery int
	steps      int

	// Input nodes of the training graph
	selectedActions       *G.Node // One-hot actions taken in each state
	nextStateActionValues *G.Node // Q(s', ⋅) computed by targetNet
	rewards               *G.Node
	discounts             *G.Node

	loss    *G.Node
	lossVal G.Value

	numActions int
	replay     expreplay.ExperienceReplayer

	// Previous timestep to construct transitions from
	prevStep ts.TimeStep

	batchSize int
	eval      bool
}

// New creates and returns a new DeepQ agent
func New(env environment.Environment, config Config,
	seed uint64) (*DeepQ, error) {
	numActions, err := env.ActionSpec().NumActions()
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	batchSize := config.BatchSize()

	// Behaviour network for selecting actions
	behaviourPolicy, err := policy.NewMultiHeadEGreedyMLP(
		config.Epsilon,
		env,
		1,
		G.NewGraph(),
		config.PolicyLayers,
		config.Biases,
		config.InitWFn.InitWFn(),
		config.Activations,
		seed,
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour policy: %v",
			err)
	}
	behaviourPolicyVM := G.NewTapeMachine(behaviourPolicy.Network().Graph())

	// Training and target networks start with the behaviour weights
	trainNet, err := behaviourPolicy.Network().CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create training network: %v",
			err)
	}
	targetNet, err := behaviourPolicy.Network().CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}
	targetNetVM := G.NewTapeMachine(targetNet.Graph())

	d := &DeepQ{
		behaviourPolicy:      behaviourPolicy,
		behaviourPolicyVM:    behaviourPolicyVM,
		trainNet:             trainNet,
		solver:               config.Solver.Solver,
		targetNet:            targetNet,
		targetNetVM:          targetNetVM,
		tau:                  config.Tau,
		targetUpdateInterval: config.TargetUpdateInterval,
		learnEvery:           config.LearnEvery,
		numActions:           numActions,
		batchSize:            batchSize,
	}

	if err := d.buildLoss(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Actions are stored in the replay buffer as one-hot vectors
	features := env.ObservationSpec().Shape.Len()
	d.replay, err = config.ExpReplay.Create(features, numActions, seed)
	if err != nil {
		msg := "new: could not create experience replay buffer: %v"
		return nil, fmt.Errorf(msg, err)
	}

	return d, nil
}

// buildLoss adds the mean squared TD error to the training graph and
// compiles the training graph into a VM
func (d *DeepQ) buildLoss() error {
	g := d.trainNet.Graph()

	d.nextStateActionValues = G.NewMatrix(g, tensor.Float64,
		G.WithShape(d.batchSize, d.numActions), G.WithName("targetActionVals"))
	d.rewards = G.NewVector(g, tensor.Float64, G.WithShape(d.batchSize),
		G.WithName("reward"))
	d.discounts = G.NewVector(g, tensor.Float64, G.WithShape(d.batchSize),
		G.WithName("discount"))

	// Update target: r + γ * max[Q(s', a')]
	updateTarget := G.Must(G.Max(d.nextStateActionValues, 1))
	updateTarget = G.Must(G.HadamardProd(updateTarget, d.discounts))
	updateTarget = G.Must(G.Add(updateTarget, d.rewards))

	// The network outputs one value per action, select the value of the
	// action that was taken
	d.selectedActions = G.NewMatrix(g, tensor.Float64,
		G.WithShape(d.batchSize, d.numActions), G.WithName("actionSelected"))
	selectedActionsValue := G.Must(G.HadamardProd(d.trainNet.Prediction(),
		d.selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	losses := G.Must(G.Sub(updateTarget, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	d.loss = G.Must(G.Mean(losses))
	G.Read(d.loss, &d.lossVal)

	if _, err := G.Grad(d.loss, d.trainNet.Learnables()...); err != nil {
		return fmt.Errorf("buildLoss: could not compute gradient: %v", err)
	}

	d.trainNetVM = G.NewTapeMachine(g,
		G.BindDualValues(d.trainNet.Learnables()...))
	return nil
}

// ObserveFirst observes and records the first episodic timestep
func (d *DeepQ) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		log.Errorf("observeFirst: should only be called on the first "+
			"timestep (current timestep = %d)", t.Number)
	}
	d.prevStep = t
	return nil
}

// Observe observes and records any timestep other than the first
// timestep. The transition from the previously observed timestep is
// added to the replay buffer.
func (d *DeepQ) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if action.Len() != 1 {
		return fmt.Errorf("observe: actions must be 1-dimensional "+
			"\n\twant(1) \n\thave(%v)", action.Len())
	}
	if d.prevStep.Observation == nil {
		return fmt.Errorf("observe: ObserveFirst must be called before " +
			"Observe")
	}

	a := int(action.AtVec(0))
	if a < 0 || a >= d.numActions {
		return fmt.Errorf("observe: illegal action %v", a)
	}
	oneHot := mat.NewVecDense(d.numActions, nil)
	oneHot.SetVec(a, 1.0)

	transition := ts.NewTransition(d.prevStep, oneHot, nextStep, nil)
	if err := d.replay.Add(transition); err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	d.prevStep = nextStep
	d.steps++
	return nil
}

// Step performs one gradient step every LearnEvery environment steps,
// once the replay buffer holds enough transitions to sample from.
func (d *DeepQ) Step() error {
	if d.eval || d.steps%d.learnEvery != 0 {
		return nil
	}

	S, A, R, discount, NextS, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("step: %v", err)
	}

	// Predict the action values in the next state NextS
	if err := d.targetNet.SetInput(NextS); err != nil {
		return fmt.Errorf("step: could not set target net input: %v", err)
	}
	if err := d.targetNetVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run target net: %v", err)
	}
	nextValues := make([]float64, d.batchSize*d.numActions)
	copy(nextValues, d.targetNet.Output().Data().([]float64))
	d.targetNetVM.Reset()

	inputs := []struct {
		node *G.Node
		data []float64
	}{
		{d.nextStateActionValues, nextValues},
		{d.selectedActions, A},
		{d.rewards, R},
		{d.discounts, discount},
	}
	for _, in := range inputs {
		t := tensor.New(tensor.WithShape(in.node.Shape()...),
			tensor.WithBacking(in.data))
		if err := G.Let(in.node, t); err != nil {
			return fmt.Errorf("step: could not set %v: %v", in.node.Name(),
				err)
		}
	}

	if err := d.trainNet.SetInput(S); err != nil {
		return fmt.Errorf("step: could not set train net input: %v", err)
	}

	// Run the learning step
	if err := d.trainNetVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run train net: %v", err)
	}
	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		return fmt.Errorf("step: could not step solver: %v", err)
	}
	d.trainNetVM.Reset()
	d.gradientSteps++

	if d.gradientSteps%d.targetUpdateInterval == 0 {
		if err := d.syncTarget(); err != nil {
			return fmt.Errorf("step: %v", err)
		}
	}

	if err := d.behaviourPolicy.Network().Set(d.trainNet); err != nil {
		return fmt.Errorf("step: could not update behaviour policy: %v", err)
	}
	return nil
}

// syncTarget updates the target network towards the training network,
// by copying weights if tau = 1 and by Polyak averaging otherwise
func (d *DeepQ) syncTarget() error {
	if d.tau == 1.0 {
		if err := d.targetNet.Set(d.trainNet); err != nil {
			return fmt.Errorf("syncTarget: %v", err)
		}
		return nil
	}
	if err := d.targetNet.Polyak(d.trainNet, d.tau); err != nil {
		return fmt.Errorf("syncTarget: %v", err)
	}
	return nil
}

// SelectAction returns the action selected by the behaviour policy in
// the state observed in t. In evaluation mode, actions are selected
// greedily.
func (d *DeepQ) SelectAction(t ts.TimeStep) (*mat.VecDense, error) {
	if d.eval {
		epsilon := d.behaviourPolicy.Epsilon()
		d.behaviourPolicy.SetEpsilon(0.0)
		defer d.behaviourPolicy.SetEpsilon(epsilon)
	}

	obs := t.Observation.RawVector().Data
	if err := d.behaviourPolicy.Network().SetInput(obs); err != nil {
		return nil, fmt.Errorf("selectAction: %v", err)
	}

	if err := d.behaviourPolicyVM.RunAll(); err != nil {
		return nil, fmt.Errorf("selectAction: %v", err)
	}
	defer d.behaviourPolicyVM.Reset()

	actions, _, err := d.behaviourPolicy.SelectAction()
	if err != nil {
		return nil, fmt.Errorf("selectAction: %v", err)
	}

	return mat.NewVecDense(1, []float64{float64(actions[0])}), nil
}

// ActionValues returns the estimated value of each action in the state
// observed in t
func (d *DeepQ) ActionValues(t ts.TimeStep) ([]float64, error) {
	net := d.behaviourPolicy.Network()
	if err := net.SetInput(t.Observation.RawVector().Data); err != nil {
		return nil, fmt.Errorf("actionValues: %v", err)
	}
	if err := d.behaviourPolicyVM.RunAll(); err != nil {
		return nil, fmt.Errorf("actionValues: %v", err)
	}
	defer d.behaviourPolicyVM.Reset()

	return append([]float64{}, net.Output().Data().([]float64)...), nil
}

// Loss returns the mean squared TD error of the last gradient step
func (d *DeepQ) Loss() float64 {
	if d.lossVal == nil {
		return 0.0
	}
	switch v := d.lossVal.Data().(type) {
	case float64:
		return v
	case []float64:
		return v[0]
	default:
		return 0.0
	}
}

// GradientSteps returns the number of gradient steps taken
func (d *DeepQ) GradientSteps() int {
	return d.gradientSteps
}

// SetEpsilon sets the exploration rate of the behaviour policy
func (d *DeepQ) SetEpsilon(ε float64) {
	d.behaviourPolicy.SetEpsilon(ε)
}

// Epsilon returns the exploration rate of the behaviour policy
func (d *DeepQ) Epsilon() float64 {
	return d.behaviourPolicy.Epsilon()
}

// Eval sets the agent into evaluation mode
func (d *DeepQ) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DeepQ) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.eval
}

// EndEpisode performs cleanup at the end of an episode
func (d *DeepQ) EndEpisode() {
	d.prevStep = ts.TimeStep{}
}

// Save saves the weights of the agent's policy to filename
func (d *DeepQ) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	defer f.Close()

	if err := network.Save(f, d.trainNet); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load loads policy weights saved by Save into all of the agent's
// networks
func (d *DeepQ) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	defer f.Close()

	net, err := network.Load(f)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	if net.Features() != d.trainNet.Features() ||
		net.Outputs() != d.trainNet.Outputs() {
		return fmt.Errorf("load: incompatible network, want(%v features, "+
			"%v outputs) have(%v features, %v outputs)",
			d.trainNet.Features(), d.trainNet.Outputs(), net.Features(),
			net.Outputs())
	}

	for _, n := range []network.NeuralNet{d.trainNet, d.targetNet,
		d.behaviourPolicy.Network()} {
		if err := n.Set(net); err != nil {
			return fmt.Errorf("load: %v", err)
		}
	}
	return nil
}

// Close closes the agent's VMs
func (d *DeepQ) Close() error {
	for _, vm := range []G.VM{d.behaviourPolicyVM, d.trainNetVM,
		d.targetNetVM} {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}
