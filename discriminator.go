package dcgan_go

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DiscriminatorConfig Hyper-parameters of Discriminator
//
// Channels - number of channels of input images
// Ch - number of channels of the last feature map (previous ones are Ch/8, Ch/4, Ch/2)
// ImageHeight, ImageWidth - resolution of input images
// WScale - standard deviation of initial weights
// Slope - negative slope of leaky ReLU
//
type DiscriminatorConfig struct {
	Channels    int     `toml:"channels"`
	Ch          int     `toml:"ch"`
	ImageHeight int     `toml:"image_height"`
	ImageWidth  int     `toml:"image_width"`
	WScale      float64 `toml:"wscale"`
	Slope       float64 `toml:"slope"`
}

// DefaultDiscriminatorConfig Returns default Discriminator's hyper-parameters for provided image resolution
func DefaultDiscriminatorConfig(height, width int) DiscriminatorConfig {
	return DiscriminatorConfig{
		Channels:    1,
		Ch:          512,
		ImageHeight: height,
		ImageWidth:  width,
		WScale:      0.02,
		Slope:       0.2,
	}
}

// downsampling stages: channels go 1 => Ch/8 => Ch/4 => Ch/2 => Ch
var discriminatorStages = []stage{
	{name: "c0", kernel: 3, stride: 3, pad: 1},
	{name: "c1", kernel: 2, stride: 2, pad: 1},
	{name: "c2", kernel: 2, stride: 2, pad: 1},
	{name: "c3", kernel: 2, stride: 2, pad: 1},
}

// Validate Checks hyper-parameters
func (conf DiscriminatorConfig) Validate() error {
	if conf.Channels != 1 {
		return errors.Wrap(ErrChannelMismatch, fmt.Sprintf("Discriminator works with single channel images, but got %d channels", conf.Channels))
	}
	if conf.Ch < 8 || conf.Ch%8 != 0 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("ch must be a positive multiple of 8, but got %d", conf.Ch))
	}
	if conf.WScale <= 0 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("wscale must be positive, but got %v", conf.WScale))
	}
	if conf.Slope < 0 || conf.Slope >= 1 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("slope must be in [0;1), but got %v", conf.Slope))
	}
	h, w := conf.featureSize()
	if h < 1 || w < 1 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("Resolution %dx%d is too small for discriminator", conf.ImageHeight, conf.ImageWidth))
	}
	return nil
}

// featureSize Resolution of the last feature map
func (conf DiscriminatorConfig) featureSize() (int, int) {
	h, w := conf.ImageHeight, conf.ImageWidth
	for _, st := range discriminatorStages {
		if h < 1 || w < 1 {
			return 0, 0
		}
		h = convOutSize(h, st.kernel, st.stride, st.pad)
		w = convOutSize(w, st.kernel, st.stride, st.pad)
	}
	return h, w
}

func (conf DiscriminatorConfig) stageChannels() []int {
	return []int{conf.Ch / 8, conf.Ch / 4, conf.Ch / 2, conf.Ch}
}

// Discriminator Scores images: the higher output (raw logit), the more confident "real" is.
//
// Params - learnable parameters
// Stats - running statistics of batch normalization
//
type Discriminator struct {
	Config DiscriminatorConfig
	Params *ParamSet
	Stats  *ParamSet
}

// NewDiscriminator Constructor for Discriminator. Weights are drawn from provided source.
func NewDiscriminator(conf DiscriminatorConfig, rnd *rand.Rand) (*Discriminator, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "[Discriminator]")
	}
	dis := &Discriminator{
		Config: conf,
		Params: NewParamSet(),
		Stats:  NewParamSet(),
	}
	var err error
	add := func(ps *ParamSet, name string, t *tensor.Dense) {
		if err == nil {
			err = ps.Add(name, t)
		}
	}
	inChannels := conf.Channels
	for i, st := range discriminatorStages {
		outChannels := conf.stageChannels()[i]
		add(dis.Params, st.name+"/W", NormRandDense(rnd, conf.WScale, outChannels, inChannels, st.kernel, st.kernel))
		add(dis.Params, st.name+"/b", filledDense(0, outChannels))
		if i > 0 {
			// no gamma: scores are linearly combined afterwards anyway
			bnName := fmt.Sprintf("bn%d", i)
			add(dis.Params, bnName+"/beta", filledDense(0, outChannels))
			add(dis.Stats, bnName+"/avg_mean", filledDense(0, outChannels))
			add(dis.Stats, bnName+"/avg_var", filledDense(1, outChannels))
		}
		inChannels = outChannels
	}
	h, w := conf.featureSize()
	add(dis.Params, "l4/W", NormRandDense(rnd, conf.WScale, 1, inChannels*h*w))
	add(dis.Params, "l4/b", filledDense(0, 1))
	if err != nil {
		return nil, errors.Wrap(err, "[Discriminator] Can't register parameters")
	}
	return dis, nil
}

// InputShape Returns expected shape of image batch: (batchSize, Channels, ImageHeight, ImageWidth)
func (dis *Discriminator) InputShape(batchSize int) tensor.Shape {
	return tensor.Shape{batchSize, dis.Config.Channels, dis.Config.ImageHeight, dis.Config.ImageWidth}
}

// Define Binds Discriminator's parameters to provided graph. Returned network could be fed several times.
//
// mode - ModeTraining normalizes by batch statistics, ModeInference by running ones
//
func (dis *Discriminator) Define(g *gorgonia.ExprGraph, mode Mode) (*Network, error) {
	net := newNetwork("discriminator")
	b := &builder{g: g, net: net, params: dis.Params, stats: dis.Stats, mode: mode}
	leaky := LeakyRectify(dis.Config.Slope)
	for i, st := range discriminatorStages {
		if i == 0 {
			b.conv(st, leaky)
			continue
		}
		b.conv(st, NoActivation)
		b.batchnorm(fmt.Sprintf("bn%d", i), dis.Config.stageChannels()[i], false, leaky)
	}
	b.flatten("flatten")
	b.linear("l4", NoActivation)
	if b.err != nil {
		return nil, errors.Wrap(b.err, "[Discriminator]")
	}
	return net, nil
}

// Fwd Feedforwards image batch through network defined by Define. Returns (batch, 1) logits node.
func (dis *Discriminator) Fwd(net *Network, input *gorgonia.Node) (*gorgonia.Node, error) {
	if input.Dims() != 4 {
		return nil, fmt.Errorf("[Discriminator] Input must be 4D, but got %v", input.Shape())
	}
	batchSize := input.Shape()[0]
	if input.Shape()[1] != dis.Config.Channels {
		return nil, errors.Wrap(ErrChannelMismatch, fmt.Sprintf("[Discriminator] Input has %d channels, but %d expected", input.Shape()[1], dis.Config.Channels))
	}
	if !input.Shape().Eq(dis.InputShape(batchSize)) {
		return nil, fmt.Errorf("[Discriminator] Input must have shape %v, but got %v", dis.InputShape(batchSize), input.Shape())
	}
	if err := net.Fwd(input, batchSize); err != nil {
		return nil, errors.Wrap(err, "[Discriminator]")
	}
	return net.Out(), nil
}
