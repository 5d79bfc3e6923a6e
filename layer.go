package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer Just an alias to Weight+Bias+ActivationFunction combo
//
// Name - name of layer (used as prefix for parameters' names)
// Norm - batch normalization state (used for LayerBatchNorm only)
// ReshapeDims - per-sample dimensions (batch dimension will be prepended)
//
type Layer struct {
	Name       string
	WeightNode *gorgonia.Node
	BiasNode   *gorgonia.Node
	Activation ActivationFunc
	Type       LayerType

	KernelHeight int
	KernelWidth  int
	Padding      []int
	Stride       []int
	Dilation     []int
	ReshapeDims  []int

	Norm *BatchNorm
}

type LayerType uint16

const (
	LayerLinear = LayerType(iota)
	LayerFlatten
	LayerConvolutional
	LayerDeconvolutional
	LayerBatchNorm
	LayerReshape
)

func (lt LayerType) String() string {
	switch lt {
	case LayerLinear:
		return "linear"
	case LayerFlatten:
		return "flatten"
	case LayerConvolutional:
		return "convolutional"
	case LayerDeconvolutional:
		return "deconvolutional"
	case LayerBatchNorm:
		return "batchnorm"
	case LayerReshape:
		return "reshape"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(lt))
	}
}

var (
	allowedNoWeights = []LayerType{LayerFlatten, LayerReshape, LayerBatchNorm}
)

func noWeightsAllowed(checkType LayerType) bool {
	return checkLayerType(checkType, allowedNoWeights...)
}

func checkLayerType(checkType LayerType, t ...LayerType) bool {
	for _, typeOf := range t {
		if checkType == typeOf {
			return true
		}
	}
	return false
}

// Fwd Feedforward input through the layer. Activation is not applied here.
//
// batchSize - batch size. If it's >= 2 then broadcast over batch dimension will be applied
//
func (l *Layer) Fwd(batchSize int, input *gorgonia.Node) (*gorgonia.Node, error) {
	switch l.Type {
	case LayerLinear:
		x := input
		if input.Dims() > 2 {
			flat, err := gorgonia.Reshape(input, tensor.Shape{batchSize, input.Shape().TotalSize() / batchSize})
			if err != nil {
				return nil, errors.Wrap(err, "Can't flatten input of linear layer")
			}
			x = flat
		}
		tOp, err := gorgonia.Transpose(l.WeightNode)
		if err != nil {
			return nil, errors.Wrap(err, "Can't transpose weights")
		}
		out, err := gorgonia.Mul(x, tOp)
		if err != nil {
			return nil, errors.Wrap(err, "Can't multiply input and weights")
		}
		var pattern []byte
		if batchSize >= 2 {
			pattern = []byte{0}
		}
		return l.addBias(out, batchSize, pattern)
	case LayerConvolutional:
		if channels := l.WeightNode.Shape()[1]; input.Shape()[1] != channels {
			return nil, errors.Wrap(ErrChannelMismatch, fmt.Sprintf("Layer '%s' expects %d input channels, but got %d", l.Name, channels, input.Shape()[1]))
		}
		out, err := gorgonia.Conv2d(input, l.WeightNode, tensor.Shape{l.KernelHeight, l.KernelWidth}, l.Padding, l.Stride, l.Dilation)
		if err != nil {
			return nil, errors.Wrap(err, "Can't convolve[2D] input by kernel")
		}
		return l.addBias(out, batchSize, spatialPattern(batchSize))
	case LayerDeconvolutional:
		out, err := deconv2d(input, l.WeightNode, l.KernelHeight, l.KernelWidth, l.Padding, l.Stride)
		if err != nil {
			return nil, errors.Wrap(err, "Can't deconvolve[2D] input by kernel")
		}
		return l.addBias(out, batchSize, spatialPattern(batchSize))
	case LayerBatchNorm:
		if l.Norm == nil {
			return nil, fmt.Errorf("Batch normalization state of layer '%s' is nil", l.Name)
		}
		return l.Norm.Fwd(input, batchSize)
	case LayerFlatten:
		out, err := gorgonia.Reshape(input, tensor.Shape{batchSize, input.Shape().TotalSize() / batchSize})
		if err != nil {
			return nil, errors.Wrap(err, "Can't flatten input")
		}
		return out, nil
	case LayerReshape:
		dims := append([]int{batchSize}, l.ReshapeDims...)
		out, err := gorgonia.Reshape(input, dims)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't reshape input to %v", dims))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("Layer's type '%d' (uint16) is not handled", l.Type)
	}
}

// addBias Adds bias (if any) to non-activated output
func (l *Layer) addBias(out *gorgonia.Node, batchSize int, pattern []byte) (*gorgonia.Node, error) {
	if l.BiasNode == nil {
		return out, nil
	}
	// (n) => (1, n) or (1, n, 1, 1)
	biasShape := tensor.Shape{1, l.BiasNode.Shape().TotalSize()}
	if out.Dims() == 4 {
		biasShape = append(biasShape, 1, 1)
	}
	bias, err := gorgonia.Reshape(l.BiasNode, biasShape)
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape bias")
	}
	if len(pattern) == 0 {
		ret, err := gorgonia.Add(out, bias)
		if err != nil {
			return nil, errors.Wrap(err, "Can't add bias to non-activated output")
		}
		return ret, nil
	}
	ret, err := gorgonia.BroadcastAdd(out, bias, nil, pattern)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't add [in broadcast term with batch_size = %d] bias to non-activated output", batchSize))
	}
	return ret, nil
}

// spatialPattern Broadcast pattern for per-channel values of (batch, channels, height, width) tensors
func spatialPattern(batchSize int) []byte {
	if batchSize < 2 {
		return []byte{2, 3}
	}
	return []byte{0, 2, 3}
}
