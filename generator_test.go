package dcgan_go

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestGeneratorOutputShape(t *testing.T) {
	gen, _ := testNetworks(t, 1)
	assert.Equal(t, 28, gen.Config.OutputSize())
	for _, mode := range []Mode{ModeTraining, ModeInference} {
		for _, batchSize := range []int{1, 2, 4} {
			sampler, err := NewSampler(gen, batchSize, mode)
			require.NoError(t, err)
			out, err := sampler.Generate(gen.MakeHidden(rand.New(rand.NewSource(int64(batchSize))), batchSize))
			require.NoError(t, err, "mode %s, batch %d", mode, batchSize)
			assert.Equal(t, tensor.Shape{batchSize, 1, 28, 28}, out.Shape())
			for _, v := range denseData(t, out) {
				if v < 0 || v > 1 {
					t.Fatalf("Generated value %v is out of [0;1] (mode %s, batch %d)", v, mode, batchSize)
				}
			}
			require.NoError(t, sampler.Close())
		}
	}
}

func TestGeneratorParams(t *testing.T) {
	gen, _ := testNetworks(t, 1)
	expected := map[string]tensor.Shape{
		"l0/W":      {3 * 3 * 16, 8},
		"l0/b":      {3 * 3 * 16},
		"bn1/gamma": {16},
		"dc1/W":     {16, 8, 2, 2},
		"bn2/beta":  {8},
		"dc2/W":     {8, 4, 2, 2},
		"dc3/W":     {4, 2, 2, 2},
		"bn4/gamma": {2},
		"dc4/W":     {2, 1, 3, 3},
		"dc4/b":     {1},
	}
	for name, shp := range expected {
		p, ok := gen.Params.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, shp, p.Shape(), name)
	}
	avgVar, ok := gen.Stats.Get("bn3/avg_var")
	require.True(t, ok)
	for _, v := range denseData(t, avgVar) {
		assert.Equal(t, float32(1), v)
	}
	gamma, _ := gen.Params.Get("bn1/gamma")
	for _, v := range denseData(t, gamma) {
		assert.Equal(t, float32(1), v)
	}
}

func TestMakeHidden(t *testing.T) {
	gen, _ := testNetworks(t, 1)
	a := gen.MakeHidden(rand.New(rand.NewSource(1)), 5)
	b := gen.MakeHidden(rand.New(rand.NewSource(2)), 5)
	c := gen.MakeHidden(rand.New(rand.NewSource(1)), 5)
	assert.Equal(t, tensor.Shape{5, 8, 1, 1}, a.Shape())
	assert.NotEqual(t, denseData(t, a), denseData(t, b))
	assert.Equal(t, denseData(t, a), denseData(t, c))
	for _, v := range denseData(t, a) {
		assert.True(t, v >= -1 && v <= 1, "latent value %v is out of [-1;1]", v)
	}
}

func TestGeneratorConfigValidate(t *testing.T) {
	cases := []func(*GeneratorConfig){
		func(c *GeneratorConfig) { c.NHidden = 0 },
		func(c *GeneratorConfig) { c.Ch = 12 },
		func(c *GeneratorConfig) { c.BottomWidth = 1 },
		func(c *GeneratorConfig) { c.WScale = 0 },
	}
	for i, modify := range cases {
		conf := DefaultGeneratorConfig(8)
		modify(&conf)
		_, err := NewGenerator(conf, rand.New(rand.NewSource(1)))
		assert.True(t, errors.Is(err, ErrInvalidConfig), "case #%d: %v", i, err)
	}
	assert.NoError(t, DefaultGeneratorConfig(128).Validate())
}

func TestGeneratorSameSeedSameWeights(t *testing.T) {
	a, _ := testNetworks(t, 5)
	b, _ := testNetworks(t, 5)
	assert.Equal(t, a.Params.Records(), b.Params.Records())
}
