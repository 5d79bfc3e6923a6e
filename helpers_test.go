package dcgan_go

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// small architecture keeps graphs cheap
func testGeneratorConfig() GeneratorConfig {
	conf := DefaultGeneratorConfig(8)
	conf.Ch = 16
	return conf
}

func testNetworks(t *testing.T, seed int64) (*Generator, *Discriminator) {
	rnd := rand.New(rand.NewSource(seed))
	gen, err := NewGenerator(testGeneratorConfig(), rnd)
	require.NoError(t, err)
	side := gen.Config.OutputSize()
	disConf := DefaultDiscriminatorConfig(side, side)
	disConf.Ch = 16
	dis, err := NewDiscriminator(disConf, rnd)
	require.NoError(t, err)
	return gen, dis
}

func testDataset(t *testing.T, n, side int, seed int64) *TrainSet {
	rnd := rand.New(rand.NewSource(seed))
	images := make([][]float32, n)
	for i := range images {
		images[i] = make([]float32, side*side)
		for j := range images[i] {
			images[i][j] = rnd.Float32()
		}
	}
	ts, err := NewTrainSet(images, side, side)
	require.NoError(t, err)
	return ts
}

func testUpdater(t *testing.T, seed int64, dataset *TrainSet, batchSize int) *Updater {
	gen, dis := testNetworks(t, seed)
	optGen, err := NewAdam(DefaultAdamConfig())
	require.NoError(t, err)
	optDis, err := NewAdam(DefaultAdamConfig())
	require.NoError(t, err)
	iter, err := NewSerialIterator(dataset.DataLength, batchSize, 7)
	require.NoError(t, err)
	upd, err := NewUpdater(gen, dis, dataset, iter, optGen, optDis, UpdaterConfig{
		BatchSize:   batchSize,
		Seed:        42,
		CheckFinite: true,
	})
	require.NoError(t, err)
	return upd
}

func denseData(t *testing.T, d *tensor.Dense) []float32 {
	data, ok := d.Data().([]float32)
	require.True(t, ok, "expected []float32, got %T", d.Data())
	return data
}
