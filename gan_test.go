package dcgan_go

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestGAN(t *testing.T) {
	gen, dis := testNetworks(t, 3)
	net, err := NewGAN(gen, dis, 2)
	require.NoError(t, err)
	defer net.Close()

	assert.Equal(t, tensor.Shape{2, 1}, net.Out().Shape())
	assert.Equal(t, gen.OutputShape(2), net.GeneratorOut().Shape())
	assert.Equal(t, gen.Params.Len(), len(net.GeneratorLearnables()))

	_, err = net.Fake()
	assert.Error(t, err)

	latent := gen.MakeHidden(rand.New(rand.NewSource(1)), 2)
	require.NoError(t, net.Run(latent))
	loss, err := net.Loss()
	require.NoError(t, err)
	assert.True(t, isFinite(loss))
	assert.True(t, loss > 0)
	fake, err := net.Fake()
	require.NoError(t, err)
	assert.Equal(t, gen.OutputShape(2), fake.Shape())

	genBefore := gen.Params.Clone()
	disBefore := dis.Params.Clone()
	opt, err := NewAdam(DefaultAdamConfig())
	require.NoError(t, err)
	require.NoError(t, net.Apply(opt))
	assert.NotEqual(t, genBefore.Records(), gen.Params.Records())
	// mirror never writes back
	assert.Equal(t, disBefore.Records(), dis.Params.Records())

	err = net.Run(gen.MakeHidden(rand.New(rand.NewSource(1)), 3))
	assert.Error(t, err)
}

func TestNewGANErrors(t *testing.T) {
	gen, dis := testNetworks(t, 3)
	_, err := NewGAN(gen, dis, 0)
	assert.Error(t, err)
}
