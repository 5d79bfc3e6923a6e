package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// builder Appends layers to network keeping the first error, so definitions of networks stay linear
type builder struct {
	g      *gorgonia.ExprGraph
	net    *Network
	params *ParamSet
	stats  *ParamSet
	mode   Mode
	err    error
}

func (b *builder) param(name string) *gorgonia.Node {
	if b.err != nil {
		return nil
	}
	var n *gorgonia.Node
	if n, b.err = b.net.bindParam(b.g, b.params, name); b.err != nil {
		b.err = errors.WithStack(b.err)
	}
	return n
}

func (b *builder) stat(name string) *gorgonia.Node {
	if b.err != nil {
		return nil
	}
	var n *gorgonia.Node
	if n, b.err = b.net.bindStat(b.g, b.stats, name); b.err != nil {
		b.err = errors.WithStack(b.err)
	}
	return n
}

func (b *builder) add(l *Layer) {
	if b.err != nil {
		return
	}
	b.net.Layers = append(b.net.Layers, l)
}

func (b *builder) linear(name string, activation ActivationFunc) {
	w := b.param(name + "/W")
	bias := b.param(name + "/b")
	b.add(&Layer{
		Name:       name,
		WeightNode: w,
		BiasNode:   bias,
		Type:       LayerLinear,
		Activation: activation,
	})
}

func (b *builder) conv(st stage, activation ActivationFunc) {
	w := b.param(st.name + "/W")
	bias := b.param(st.name + "/b")
	b.add(&Layer{
		Name:         st.name,
		WeightNode:   w,
		BiasNode:     bias,
		Type:         LayerConvolutional,
		Activation:   activation,
		KernelHeight: st.kernel,
		KernelWidth:  st.kernel,
		Padding:      []int{st.pad, st.pad},
		Stride:       []int{st.stride, st.stride},
		Dilation:     []int{1, 1},
	})
}

func (b *builder) deconv(st stage, activation ActivationFunc) {
	w := b.param(st.name + "/W")
	bias := b.param(st.name + "/b")
	b.add(&Layer{
		Name:         st.name,
		WeightNode:   w,
		BiasNode:     bias,
		Type:         LayerDeconvolutional,
		Activation:   activation,
		KernelHeight: st.kernel,
		KernelWidth:  st.kernel,
		Padding:      []int{st.pad, st.pad},
		Stride:       []int{st.stride, st.stride},
	})
}

func (b *builder) batchnorm(name string, channels int, useGamma bool, activation ActivationFunc) {
	bn := &BatchNorm{
		Name:     name,
		Channels: channels,
		Decay:    DefaultBatchNormDecay,
		Eps:      DefaultBatchNormEps,
		Mode:     b.mode,
	}
	if useGamma {
		bn.Gamma = b.param(name + "/gamma")
	}
	bn.Beta = b.param(name + "/beta")
	if b.mode == ModeInference {
		bn.AvgMean = b.stat(name + "/avg_mean")
		bn.AvgVar = b.stat(name + "/avg_var")
	}
	b.add(&Layer{
		Name:       name,
		Type:       LayerBatchNorm,
		Activation: activation,
		Norm:       bn,
	})
}

func (b *builder) reshape(name string, dims ...int) {
	b.add(&Layer{
		Name:        name,
		Type:        LayerReshape,
		Activation:  NoActivation,
		ReshapeDims: dims,
	})
}

func (b *builder) flatten(name string) {
	b.add(&Layer{
		Name:       name,
		Type:       LayerFlatten,
		Activation: NoActivation,
	})
}

func (b *builder) check(cond bool, format string, args ...interface{}) {
	if b.err == nil && !cond {
		b.err = fmt.Errorf(format, args...)
	}
}
