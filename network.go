package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// Network Abstraction for neural network.
//
// Layers - simple sequence of layers
// out - alias to activated output of last layer
// params - nodes bound to learnable parameters (by parameter name)
// stats - nodes bound to running statistics (by statistic name), inference mode only
//
type Network struct {
	Name   string
	Layers []*Layer
	out    *gorgonia.Node

	params     map[string]*gorgonia.Node
	paramNames []string
	stats      map[string]*gorgonia.Node
	statNames  []string
}

func newNetwork(name string) *Network {
	return &Network{
		Name:   name,
		params: make(map[string]*gorgonia.Node),
		stats:  make(map[string]*gorgonia.Node),
	}
}

// Out Returns reference to output node
func (net *Network) Out() *gorgonia.Node {
	return net.out
}

// Learnables Returns learnables nodes
func (net *Network) Learnables() gorgonia.Nodes {
	learnables := make(gorgonia.Nodes, 0, len(net.paramNames))
	for _, name := range net.paramNames {
		learnables = append(learnables, net.params[name])
	}
	return learnables
}

// Fwd Initializates feedforward for provided input. Could be called several times for different inputs:
// parameters are shared, Out() refers to the last call.
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *Network) Fwd(input *gorgonia.Node, batchSize int) error {
	networkName := "network"
	if net.Name != "" {
		networkName = net.Name
	}

	if len(net.Layers) == 0 {
		return fmt.Errorf("Network must have one layer atleast")
	}
	if input.Shape()[0] != batchSize {
		return fmt.Errorf("Input's batch dimension is %d, but batch size is %d", input.Shape()[0], batchSize)
	}

	lastActivatedLayer := input
	for i := range net.Layers {
		if net.Layers[i] == nil {
			return fmt.Errorf("Network's layer #%d is nil", i)
		}
		if net.Layers[i].WeightNode == nil && !noWeightsAllowed(net.Layers[i].Type) {
			return fmt.Errorf("Network's layer's #%d WeightNode is nil", i)
		}
		// Feedforward input through i-th layer
		layerNonActivated, err := net.Layers[i].Fwd(batchSize, lastActivatedLayer)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("[%s, Layer #%d '%s'] Can't feedforward input before activation", networkName, i, net.Layers[i].Name))
		}
		// Activate i-th layer's output
		activation := net.Layers[i].Activation
		if activation == nil {
			activation = NoActivation
		}
		layerActivated, err := activation(layerNonActivated)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't apply activation function to non-activated output of %s's layer #%d", networkName, i))
		}
		lastActivatedLayer = layerActivated
	}
	net.out = lastActivatedLayer
	return nil
}

// Push Copies values of parameters (and running statistics if network holds them) into graph nodes
func (net *Network) Push(params, stats *ParamSet) error {
	if err := pushNodes(net.params, net.paramNames, params); err != nil {
		return errors.Wrap(err, fmt.Sprintf("[%s] Can't push parameters", net.Name))
	}
	if stats == nil {
		return nil
	}
	if err := pushNodes(net.stats, net.statNames, stats); err != nil {
		return errors.Wrap(err, fmt.Sprintf("[%s] Can't push running statistics", net.Name))
	}
	return nil
}

// Pull Copies values of graph nodes back into parameters
func (net *Network) Pull(params *ParamSet) error {
	for _, name := range net.paramNames {
		dst, ok := params.Get(name)
		if !ok {
			return fmt.Errorf("[%s] Parameter '%s' is not registered", net.Name, name)
		}
		if err := copyValue(dst, net.params[name].Value()); err != nil {
			return errors.Wrap(err, fmt.Sprintf("[%s] Can't pull parameter '%s'", net.Name, name))
		}
	}
	return nil
}

// ZeroGrads Discards gradients of learnables evaluated by the last run
func (net *Network) ZeroGrads() error {
	for _, name := range net.paramNames {
		grad, err := net.params[name].Grad()
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("[%s] Can't get gradient of '%s'", net.Name, name))
		}
		data, ok := grad.Data().([]float32)
		if !ok {
			return fmt.Errorf("[%s] Gradient of '%s' has type %T, but []float32 is expected", net.Name, name, grad.Data())
		}
		zero(data)
	}
	return nil
}

// UpdateRunningStats Folds batch statistics of the last run into running statistics
func (net *Network) UpdateRunningStats(stats *ParamSet) error {
	for _, l := range net.Layers {
		if l == nil || l.Type != LayerBatchNorm || l.Norm == nil || l.Norm.Mode != ModeTraining {
			continue
		}
		avgMean, ok := stats.Get(l.Name + "/avg_mean")
		if !ok {
			return fmt.Errorf("[%s] Running mean of '%s' is not registered", net.Name, l.Name)
		}
		avgVar, ok := stats.Get(l.Name + "/avg_var")
		if !ok {
			return fmt.Errorf("[%s] Running variance of '%s' is not registered", net.Name, l.Name)
		}
		if err := l.Norm.UpdateRunningStats(avgMean, avgVar); err != nil {
			return errors.Wrap(err, fmt.Sprintf("[%s] Can't update running statistics", net.Name))
		}
	}
	return nil
}

// bindParam Creates node on graph holding copy of named parameter
func (net *Network) bindParam(g *gorgonia.ExprGraph, params *ParamSet, name string) (*gorgonia.Node, error) {
	n, err := net.bind(g, params, name)
	if err != nil {
		return nil, err
	}
	net.params[name] = n
	net.paramNames = append(net.paramNames, name)
	return n, nil
}

// bindStat Creates node on graph holding copy of named running statistic
func (net *Network) bindStat(g *gorgonia.ExprGraph, stats *ParamSet, name string) (*gorgonia.Node, error) {
	n, err := net.bind(g, stats, name)
	if err != nil {
		return nil, err
	}
	net.stats[name] = n
	net.statNames = append(net.statNames, name)
	return n, nil
}

func (net *Network) bind(g *gorgonia.ExprGraph, ps *ParamSet, name string) (*gorgonia.Node, error) {
	t, ok := ps.Get(name)
	if !ok {
		return nil, fmt.Errorf("[%s] Tensor '%s' is not registered", net.Name, name)
	}
	value := t.Clone()
	n := gorgonia.NewTensor(g, Float, t.Dims(), gorgonia.WithShape(t.Shape().Clone()...), gorgonia.WithName(net.Name+"/"+name), gorgonia.WithValue(value))
	return n, nil
}

func pushNodes(nodes map[string]*gorgonia.Node, names []string, ps *ParamSet) error {
	for _, name := range names {
		src, ok := ps.Get(name)
		if !ok {
			return fmt.Errorf("Tensor '%s' is not registered", name)
		}
		if err := copyValue(nodes[name].Value(), src); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't push '%s'", name))
		}
	}
	return nil
}
