package dcgan_go

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NormRandDense Return reference to tensor.Dense filled with normally distributed float32 values N(0, scale)
//
// rnd - source of randomness. Nothing is taken from global source
// shape - shape of resulting tensor
//
func NormRandDense(rnd *rand.Rand, scale float64, shape ...int) *tensor.Dense {
	data := make([]float32, tensor.Shape(shape).TotalSize())
	for i := range data {
		data[i] = float32(rnd.NormFloat64() * scale)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

// UniformRandDense Return reference to tensor.Dense filled with pseudo-random float32 values in range [low;high]
//
// rnd - source of randomness. Nothing is taken from global source
// shape - shape of resulting tensor
//
func UniformRandDense(rnd *rand.Rand, low, high float64, shape ...int) *tensor.Dense {
	data := make([]float32, tensor.Shape(shape).TotalSize())
	for i := range data {
		data[i] = float32(low + rnd.Float64()*(high-low))
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

// filledDense Tensor filled with constant value
func filledDense(value float32, shape ...int) *tensor.Dense {
	data := make([]float32, tensor.Shape(shape).TotalSize())
	for i := range data {
		data[i] = value
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

// SlicerOneStep Just iterator with step size = 1
type SlicerOneStep struct {
	StartIdx, EndIdx int
}

func (s SlicerOneStep) Start() int { return s.StartIdx }
func (s SlicerOneStep) End() int   { return s.EndIdx }
func (s SlicerOneStep) Step() int  { return 1 }

// scalarValue Extracts float32 scalar from value produced by graph
func scalarValue(v gorgonia.Value) (float32, error) {
	if v == nil {
		return 0, fmt.Errorf("Value has not been evaluated")
	}
	switch data := v.Data().(type) {
	case float32:
		return data, nil
	case []float32:
		if len(data) != 1 {
			return 0, fmt.Errorf("Expected scalar, but got %d values", len(data))
		}
		return data[0], nil
	default:
		return 0, fmt.Errorf("Unexpected value type %T", data)
	}
}

func isFinite(x float32) bool {
	return !math32.IsNaN(x) && !math32.IsInf(x, 0)
}

// allFinite Checks that every element of float32 slice is neither NaN nor Inf
func allFinite(data []float32) bool {
	for _, x := range data {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
