package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// deconv2d Transposed 2D convolution for kernels which are equal to the stride.
//
// Such kernels never overlap, so every input pixel is independently projected
// into (kernelHeight x kernelWidth) output block:
//
//	(B, Cin, H, W) => (B*H*W, Cin) x (Cin, Cout*kh*kw) => (B, Cout, H*kh, W*kw)
//
// After that `pad` pixels are cropped from every border.
// Output side is: in*stride - 2*pad
//
// kernel - node of shape (Cin, Cout, kh, kw)
//
func deconv2d(input, kernel *gorgonia.Node, kernelHeight, kernelWidth int, pad, stride []int) (*gorgonia.Node, error) {
	if len(pad) != 2 || len(stride) != 2 {
		return nil, fmt.Errorf("Padding and stride must have 2 elements, but got %v and %v", pad, stride)
	}
	if stride[0] != kernelHeight || stride[1] != kernelWidth {
		return nil, fmt.Errorf("Only non-overlapping transposed convolution is supported: kernel %dx%d vs stride %v", kernelHeight, kernelWidth, stride)
	}
	if input.Dims() != 4 || kernel.Dims() != 4 {
		return nil, fmt.Errorf("Input and kernel must be 4D, but got %v and %v", input.Shape(), kernel.Shape())
	}
	inShape := input.Shape()
	kShape := kernel.Shape()
	batches, inChannels, height, width := inShape[0], inShape[1], inShape[2], inShape[3]
	if kShape[0] != inChannels {
		return nil, errors.Wrap(ErrChannelMismatch, fmt.Sprintf("Kernel expects %d input channels, but got %d", kShape[0], inChannels))
	}
	outChannels := kShape[1]
	outHeight := height*kernelHeight - 2*pad[0]
	outWidth := width*kernelWidth - 2*pad[1]
	if outHeight < 1 || outWidth < 1 {
		return nil, fmt.Errorf("Padding %v is too big for output of %dx%d", pad, height*kernelHeight, width*kernelWidth)
	}

	// (B, Cin, H, W) => (B, H, W, Cin) => (B*H*W, Cin)
	pixels, err := gorgonia.Transpose(input, 0, 2, 3, 1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't move channels to the last axis")
	}
	pixels, err = gorgonia.Reshape(pixels, tensor.Shape{batches * height * width, inChannels})
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape input into pixels matrix")
	}
	// (Cin, Cout, kh, kw) => (Cin, Cout*kh*kw)
	flatKernel, err := gorgonia.Reshape(kernel, tensor.Shape{inChannels, outChannels * kernelHeight * kernelWidth})
	if err != nil {
		return nil, errors.Wrap(err, "Can't flatten kernel")
	}
	blocks, err := gorgonia.Mul(pixels, flatKernel)
	if err != nil {
		return nil, errors.Wrap(err, "Can't project pixels by kernel")
	}
	// (B*H*W, Cout*kh*kw) => (B, H, W, Cout, kh, kw) => (B, Cout, H, kh, W, kw)
	blocks, err = gorgonia.Reshape(blocks, tensor.Shape{batches, height, width, outChannels, kernelHeight, kernelWidth})
	if err != nil {
		return nil, errors.Wrap(err, "Can't split blocks")
	}
	blocks, err = gorgonia.Transpose(blocks, 0, 3, 1, 4, 2, 5)
	if err != nil {
		return nil, errors.Wrap(err, "Can't interleave blocks")
	}
	full, err := gorgonia.Reshape(blocks, tensor.Shape{batches, outChannels, height * kernelHeight, width * kernelWidth})
	if err != nil {
		return nil, errors.Wrap(err, "Can't assemble output")
	}
	if pad[0] == 0 && pad[1] == 0 {
		return full, nil
	}
	cropped, err := gorgonia.Slice(full, nil, nil, gorgonia.S(pad[0], pad[0]+outHeight), gorgonia.S(pad[1], pad[1]+outWidth))
	if err != nil {
		return nil, errors.Wrap(err, "Can't crop padding")
	}
	return cropped, nil
}

// deconvOutSize Output side of transposed convolution
func deconvOutSize(in, kernel, stride, pad int) int {
	return stride*(in-1) + kernel - 2*pad
}

// convOutSize Output side of convolution
func convOutSize(in, kernel, stride, pad int) int {
	return (in+2*pad-kernel)/stride + 1
}
