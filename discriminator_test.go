package dcgan_go

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestDiscriminatorOutputShape(t *testing.T) {
	_, dis := testNetworks(t, 1)
	for _, batchSize := range []int{1, 3} {
		scorer, err := NewScorer(dis, batchSize, ModeTraining)
		require.NoError(t, err)
		images := UniformRandDense(rand.New(rand.NewSource(1)), 0, 1, dis.InputShape(batchSize)...)
		scores, err := scorer.Score(images)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{batchSize, 1}, scores.Shape())
		require.NoError(t, scorer.Close())
	}
}

func TestDiscriminatorParams(t *testing.T) {
	_, dis := testNetworks(t, 1)
	expected := map[string]tensor.Shape{
		"c0/W":     {2, 1, 3, 3},
		"c1/W":     {4, 2, 2, 2},
		"c2/W":     {8, 4, 2, 2},
		"c3/W":     {16, 8, 2, 2},
		"bn3/beta": {16},
		"l4/W":     {1, 16 * 3 * 3},
		"l4/b":     {1},
	}
	for name, shp := range expected {
		p, ok := dis.Params.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, shp, p.Shape(), name)
	}
	_, ok := dis.Params.Get("bn1/gamma")
	assert.False(t, ok, "discriminator's batch normalization has no scale")
	assert.Equal(t, 3*2, dis.Stats.Len())
}

func TestDiscriminatorChannelMismatch(t *testing.T) {
	conf := DefaultDiscriminatorConfig(28, 28)
	conf.Channels = 3
	_, err := NewDiscriminator(conf, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrChannelMismatch), "%v", err)

	_, dis := testNetworks(t, 1)
	g := gorgonia.NewGraph()
	input := gorgonia.NewTensor(g, Float, 4, gorgonia.WithShape(2, 3, 28, 28), gorgonia.WithName("input"))
	net, err := dis.Define(g, ModeTraining)
	require.NoError(t, err)
	_, err = dis.Fwd(net, input)
	assert.True(t, errors.Is(err, ErrChannelMismatch), "%v", err)
}

func TestDiscriminatorTooSmall(t *testing.T) {
	conf := DefaultDiscriminatorConfig(0, 28)
	_, err := NewDiscriminator(conf, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)
}

func TestGeneratorDiscriminatorEndToEnd(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	gen, err := NewGenerator(DefaultGeneratorConfig(128), rnd)
	require.NoError(t, err)
	side := gen.Config.OutputSize()
	dis, err := NewDiscriminator(DefaultDiscriminatorConfig(side, side), rnd)
	require.NoError(t, err)

	sampler, err := NewSampler(gen, 4, ModeTraining)
	require.NoError(t, err)
	defer sampler.Close()
	images, err := sampler.Generate(gen.MakeHidden(rnd, 4))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 1, side, side}, images.Shape())

	scorer, err := NewScorer(dis, 4, ModeTraining)
	require.NoError(t, err)
	defer scorer.Close()
	scores, err := scorer.Score(images)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 1}, scores.Shape())
	assert.True(t, allFinite(denseData(t, scores)))
}

func TestCheckCompatible(t *testing.T) {
	gen, _ := testNetworks(t, 1)
	conf := DefaultDiscriminatorConfig(32, 32)
	conf.Ch = 16
	dis, err := NewDiscriminator(conf, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	err = checkCompatible(gen, dis)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)
}
