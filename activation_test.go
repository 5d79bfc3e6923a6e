package dcgan_go

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestActivations(t *testing.T) {
	input := []float32{-2, 0, 3}
	cases := []struct {
		name       string
		activation ActivationFunc
		expected   func(x float64) float64
	}{
		{"none", NoActivation, func(x float64) float64 { return x }},
		{"sigmoid", Sigmoid, func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }},
		{"relu", Rectify, func(x float64) float64 { return math.Max(0, x) }},
		{"tanh", Tanh, math.Tanh},
		{"softplus", Softplus, func(x float64) float64 { return math.Log1p(math.Exp(x)) }},
		{"leaky", LeakyRectify(0.2), func(x float64) float64 {
			if x < 0 {
				return 0.2 * x
			}
			return x
		}},
	}
	for _, tc := range cases {
		g := gorgonia.NewGraph()
		x := gorgonia.NewVector(g, Float, gorgonia.WithShape(len(input)), gorgonia.WithName("x"), gorgonia.WithValue(tensor.New(tensor.WithShape(len(input)), tensor.WithBacking(append([]float32(nil), input...)))))
		out, err := tc.activation(x)
		require.NoError(t, err, tc.name)
		var outVal gorgonia.Value
		gorgonia.Read(out, &outVal)
		vm := gorgonia.NewTapeMachine(g)
		require.NoError(t, vm.RunAll(), tc.name)
		vm.Close()
		got := outVal.Data().([]float32)
		for i, v := range input {
			assert.InDelta(t, tc.expected(float64(v)), got[i], 1e-5, "%s(%v)", tc.name, v)
		}
	}
}
