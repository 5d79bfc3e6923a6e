package dcgan_go

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordByName(records []ParamRecord, name string) ParamRecord {
	for _, r := range records {
		if r.Name == name {
			return r
		}
	}
	return ParamRecord{}
}

func TestUpdaterStep(t *testing.T) {
	dataset := testDataset(t, 8, 28, 1)
	upd := testUpdater(t, 1, dataset, 4)
	defer upd.Close()

	genBefore := upd.Generator.Params.Records()
	disBefore := upd.Discriminator.Params.Records()
	genStatsBefore := upd.Generator.Stats.Records()
	disStatsBefore := upd.Discriminator.Stats.Records()

	report, err := upd.Update()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Iteration)
	assert.Equal(t, 1, upd.Iteration())
	assert.True(t, isFinite(report.GenLoss), "gen/loss = %v", report.GenLoss)
	assert.True(t, isFinite(report.DisLoss), "dis/loss = %v", report.DisLoss)
	assert.Greater(t, report.GenLoss, float32(0))
	assert.Greater(t, report.DisLoss, float32(0))

	genAfter := upd.Generator.Params.Records()
	disAfter := upd.Discriminator.Params.Records()
	assert.NotEqual(t, recordByName(genBefore, "l0/W"), recordByName(genAfter, "l0/W"))
	assert.NotEqual(t, recordByName(genBefore, "dc4/W"), recordByName(genAfter, "dc4/W"))
	assert.NotEqual(t, recordByName(disBefore, "c0/W"), recordByName(disAfter, "c0/W"))
	assert.NotEqual(t, recordByName(disBefore, "l4/W"), recordByName(disAfter, "l4/W"))
	assert.NotEqual(t, genStatsBefore, upd.Generator.Stats.Records())
	assert.NotEqual(t, disStatsBefore, upd.Discriminator.Stats.Records())
	assert.Equal(t, 1, upd.OptGen.T())
	assert.Equal(t, 1, upd.OptDis.T())

	// every parameter stays finite
	for _, r := range append(genAfter, disAfter...) {
		assert.True(t, allFinite(r.Data), r.Name)
	}
}

func TestUpdaterEpochs(t *testing.T) {
	dataset := testDataset(t, 5, 28, 1)
	upd := testUpdater(t, 1, dataset, 2)
	defer upd.Close()
	newEpochs := 0
	for i := 0; i < 5; i++ {
		report, err := upd.Update()
		require.NoError(t, err)
		if report.IsNewEpoch {
			newEpochs++
		}
	}
	// 10 samples drawn out of 5
	assert.Equal(t, 2, upd.Epoch())
	assert.Equal(t, 2, newEpochs)
	assert.Equal(t, 5, upd.Iteration())
}

func TestUpdaterNonFiniteLoss(t *testing.T) {
	images := make([][]float32, 4)
	for i := range images {
		images[i] = make([]float32, 28*28)
		for j := range images[i] {
			images[i][j] = math32.NaN()
		}
	}
	dataset, err := NewTrainSet(images, 28, 28)
	require.NoError(t, err)
	upd := testUpdater(t, 1, dataset, 2)
	defer upd.Close()

	genBefore := upd.Generator.Params.Records()
	disBefore := upd.Discriminator.Params.Records()
	genStatsBefore := upd.Generator.Stats.Records()
	disStatsBefore := upd.Discriminator.Stats.Records()

	report, err := upd.Update()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonFiniteLoss), "%v", err)
	require.NotNil(t, report)
	assert.False(t, isFinite(report.DisLoss))

	assert.Equal(t, 0, upd.Iteration())
	// rejected step still consumes its latent source
	assert.Equal(t, 1, upd.Snapshot().LatentDraws)
	_, err = upd.Update()
	assert.True(t, errors.Is(err, ErrNonFiniteLoss), "%v", err)
	assert.Equal(t, 0, upd.Iteration())
	assert.Equal(t, 2, upd.Snapshot().LatentDraws)
	assert.Equal(t, 0, upd.OptGen.T())
	assert.Equal(t, 0, upd.OptDis.T())
	assert.Equal(t, genBefore, upd.Generator.Params.Records())
	assert.Equal(t, disBefore, upd.Discriminator.Params.Records())
	assert.Equal(t, genStatsBefore, upd.Generator.Stats.Records())
	assert.Equal(t, disStatsBefore, upd.Discriminator.Stats.Records())
}

func TestUpdaterResume(t *testing.T) {
	dataset := testDataset(t, 8, 28, 3)
	upd := testUpdater(t, 1, dataset, 3)
	defer upd.Close()
	for i := 0; i < 2; i++ {
		_, err := upd.Update()
		require.NoError(t, err)
	}

	dir, err := ioutil.TempDir("", "resume")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	fname := filepath.Join(dir, "snapshot.gob")
	require.NoError(t, SaveSnapshot(fname, upd.Snapshot()))

	expected, err := upd.Update()
	require.NoError(t, err)

	// different initialization must be fully overwritten by snapshot
	resumed := testUpdater(t, 2, dataset, 3)
	defer resumed.Close()
	snap, err := LoadSnapshot(fname)
	require.NoError(t, err)
	require.NoError(t, resumed.Restore(snap))
	assert.Equal(t, 2, resumed.Iteration())

	got, err := resumed.Update()
	require.NoError(t, err)
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(upd.Snapshot(), resumed.Snapshot(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Training state mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdaterRestoreRejectsBrokenSnapshot(t *testing.T) {
	dataset := testDataset(t, 4, 28, 1)
	upd := testUpdater(t, 1, dataset, 2)
	defer upd.Close()
	_, err := upd.Update()
	require.NoError(t, err)
	before := upd.Snapshot()

	snap := upd.Snapshot()
	snap.GeneratorParams = snap.GeneratorParams[1:]
	assert.Error(t, upd.Restore(snap))

	snap = upd.Snapshot()
	snap.DiscriminatorStats[0].Data[0] = math32.Inf(1)
	assert.Error(t, upd.Restore(snap))

	// valid parts must not be applied when a later part is broken
	snap = upd.Snapshot()
	snap.Iterator.Epoch = 5
	snap.GeneratorOptimizer.T = 99
	snap.DiscriminatorOptimizer.T = -1
	assert.Error(t, upd.Restore(snap))

	snap = upd.Snapshot()
	snap.GeneratorOptimizer.T = 99
	snap.Iterator.Position = -1
	assert.Error(t, upd.Restore(snap))

	snap = upd.Snapshot()
	snap.GeneratorOptimizer.T = 99
	snap.DiscriminatorOptimizer.Second = snap.DiscriminatorOptimizer.Second[1:]
	assert.Error(t, upd.Restore(snap))

	snap = upd.Snapshot()
	snap.LatentDraws = snap.Iteration - 1
	assert.Error(t, upd.Restore(snap))

	assert.Equal(t, 1, upd.OptGen.T())
	assert.Equal(t, 0, upd.Iterator.Epoch())

	if diff := cmp.Diff(before, upd.Snapshot(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("State has been changed by failed restore (-want +got):\n%s", diff)
	}
}

func TestNewUpdaterMismatch(t *testing.T) {
	dataset := testDataset(t, 4, 20, 1)
	gen, dis := testNetworks(t, 1)
	opt, err := NewAdam(DefaultAdamConfig())
	require.NoError(t, err)
	iter, err := NewSerialIterator(4, 2, 0)
	require.NoError(t, err)
	_, err = NewUpdater(gen, dis, dataset, iter, opt, opt, UpdaterConfig{BatchSize: 2})
	assert.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)

	dataset = testDataset(t, 4, 28, 1)
	_, err = NewUpdater(gen, dis, dataset, iter, opt, opt, UpdaterConfig{BatchSize: 3})
	assert.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)
}
