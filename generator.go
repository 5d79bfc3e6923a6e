package dcgan_go

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GeneratorConfig Hyper-parameters of Generator
//
// NHidden - size of latent space
// BottomWidth - side of first feature map (after projection)
// Ch - number of channels of first feature map
// WScale - standard deviation of initial weights
//
type GeneratorConfig struct {
	NHidden     int     `toml:"n_hidden"`
	BottomWidth int     `toml:"bottom_width"`
	Ch          int     `toml:"ch"`
	WScale      float64 `toml:"wscale"`
}

// DefaultGeneratorConfig Returns default Generator's hyper-parameters for provided latent space size
func DefaultGeneratorConfig(nHidden int) GeneratorConfig {
	return GeneratorConfig{
		NHidden:     nHidden,
		BottomWidth: 3,
		Ch:          512,
		WScale:      0.02,
	}
}

// Validate Checks hyper-parameters
func (conf GeneratorConfig) Validate() error {
	if conf.NHidden < 1 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("n_hidden must be positive, but got %d", conf.NHidden))
	}
	if conf.Ch < 8 || conf.Ch%8 != 0 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("ch must be a positive multiple of 8, but got %d", conf.Ch))
	}
	if conf.BottomWidth < 2 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("bottom_width must be at least 2, but got %d", conf.BottomWidth))
	}
	if conf.WScale <= 0 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("wscale must be positive, but got %v", conf.WScale))
	}
	return nil
}

type stage struct {
	name   string
	kernel int
	stride int
	pad    int
}

// upsampling stages: every stage halves number of channels, the last one outputs single channel
var generatorStages = []stage{
	{name: "dc1", kernel: 2, stride: 2, pad: 1},
	{name: "dc2", kernel: 2, stride: 2, pad: 1},
	{name: "dc3", kernel: 2, stride: 2, pad: 1},
	{name: "dc4", kernel: 3, stride: 3, pad: 1},
}

// Generator Maps latent vectors to images.
//
// Params - learnable parameters
// Stats - running statistics of batch normalization
//
type Generator struct {
	Config GeneratorConfig
	Params *ParamSet
	Stats  *ParamSet
}

// NewGenerator Constructor for Generator. Weights are drawn from provided source.
func NewGenerator(conf GeneratorConfig, rnd *rand.Rand) (*Generator, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "[Generator]")
	}
	gen := &Generator{
		Config: conf,
		Params: NewParamSet(),
		Stats:  NewParamSet(),
	}
	ch, bw := conf.Ch, conf.BottomWidth
	var err error
	add := func(ps *ParamSet, name string, t *tensor.Dense) {
		if err == nil {
			err = ps.Add(name, t)
		}
	}
	add(gen.Params, "l0/W", NormRandDense(rnd, conf.WScale, bw*bw*ch, conf.NHidden))
	add(gen.Params, "l0/b", filledDense(0, bw*bw*ch))

	inChannels := ch
	for i, st := range generatorStages {
		outChannels := inChannels / 2
		if i == len(generatorStages)-1 {
			outChannels = 1
		}
		// batch normalization goes before every stage
		bnName := fmt.Sprintf("bn%d", i+1)
		add(gen.Params, bnName+"/gamma", filledDense(1, inChannels))
		add(gen.Params, bnName+"/beta", filledDense(0, inChannels))
		add(gen.Stats, bnName+"/avg_mean", filledDense(0, inChannels))
		add(gen.Stats, bnName+"/avg_var", filledDense(1, inChannels))

		add(gen.Params, st.name+"/W", NormRandDense(rnd, conf.WScale, inChannels, outChannels, st.kernel, st.kernel))
		add(gen.Params, st.name+"/b", filledDense(0, outChannels))
		inChannels = outChannels
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Generator] Can't register parameters")
	}
	return gen, nil
}

// OutputSize Returns side of generated (square) images
func (conf GeneratorConfig) OutputSize() int {
	side := conf.BottomWidth
	for _, st := range generatorStages {
		side = deconvOutSize(side, st.kernel, st.stride, st.pad)
	}
	return side
}

// OutputShape Returns shape of generated batch: (batchSize, 1, H, W)
func (gen *Generator) OutputShape(batchSize int) tensor.Shape {
	side := gen.Config.OutputSize()
	return tensor.Shape{batchSize, 1, side, side}
}

// InputShape Returns shape of latent batch: (batchSize, NHidden, 1, 1)
func (gen *Generator) InputShape(batchSize int) tensor.Shape {
	return tensor.Shape{batchSize, gen.Config.NHidden, 1, 1}
}

// MakeHidden Returns latent batch of shape (batchSize, NHidden, 1, 1) filled with uniform values in [-1;1].
// Nothing is retained between calls: result depends on provided source only.
func (gen *Generator) MakeHidden(rnd *rand.Rand, batchSize int) *tensor.Dense {
	return UniformRandDense(rnd, -1, 1, gen.InputShape(batchSize)...)
}

// Define Binds Generator's parameters to provided graph and returns network ready for feedforward
//
// mode - ModeTraining normalizes by batch statistics, ModeInference by running ones
//
func (gen *Generator) Define(g *gorgonia.ExprGraph, mode Mode) (*Network, error) {
	net := newNetwork("generator")
	b := &builder{g: g, net: net, params: gen.Params, stats: gen.Stats, mode: mode}
	ch, bw := gen.Config.Ch, gen.Config.BottomWidth

	b.linear("l0", NoActivation)
	b.reshape("reshape", ch, bw, bw)

	inChannels := ch
	for i, st := range generatorStages {
		b.batchnorm(fmt.Sprintf("bn%d", i+1), inChannels, true, Rectify)
		activation := NoActivation
		if i == len(generatorStages)-1 {
			activation = Sigmoid
		}
		b.deconv(st, activation)
		inChannels /= 2
	}
	if b.err != nil {
		return nil, errors.Wrap(b.err, "[Generator]")
	}
	return net, nil
}

// Fwd Defines Generator on provided graph and feedforwards input through it
func (gen *Generator) Fwd(g *gorgonia.ExprGraph, input *gorgonia.Node, mode Mode) (*Network, error) {
	if !input.Shape().Eq(gen.InputShape(input.Shape()[0])) {
		return nil, fmt.Errorf("[Generator] Input must have shape %v, but got %v", gen.InputShape(input.Shape()[0]), input.Shape())
	}
	net, err := gen.Define(g, mode)
	if err != nil {
		return nil, err
	}
	if err := net.Fwd(input, input.Shape()[0]); err != nil {
		return nil, errors.Wrap(err, "[Generator]")
	}
	return net, nil
}
