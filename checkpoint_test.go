package dcgan_go

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "checkpoint")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	gen, dis := testNetworks(t, 1)
	snap := &Snapshot{
		Iteration:   17,
		LatentDraws: 19,
		Seed:        3,
		Iterator:    IteratorState{Seed: 5, Epoch: 2, Position: 1, IsNewEpoch: true},

		GeneratorParams:     gen.Params.Records(),
		GeneratorStats:      gen.Stats.Records(),
		DiscriminatorParams: dis.Params.Records(),
		DiscriminatorStats:  dis.Stats.Records(),

		GeneratorOptimizer: AdamState{
			Config: DefaultAdamConfig(),
			T:      17,
			First:  []ParamRecord{{Name: "generator/l0/W", Shape: []int{2}, Data: []float32{0.1, 0.2}}},
			Second: []ParamRecord{{Name: "generator/l0/W", Shape: []int{2}, Data: []float32{0.01, 0.04}}},
		},
		DiscriminatorOptimizer: AdamState{Config: DefaultAdamConfig()},
	}
	fname := filepath.Join(dir, "snapshot.gob")
	require.NoError(t, SaveSnapshot(fname, snap))
	loaded, err := LoadSnapshot(fname)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}

	// overwriting leaves no temporary files
	require.NoError(t, SaveSnapshot(fname, snap))
	entries, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = LoadSnapshot(filepath.Join(dir, "missing.gob"))
	assert.Error(t, err)
}

func TestModelRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "checkpoint")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	gen, _ := testNetworks(t, 1)
	fname := filepath.Join(dir, "gen.gob")
	require.NoError(t, SaveModel(fname, gen.Params, gen.Stats))

	other, _ := testNetworks(t, 2)
	require.NotEqual(t, gen.Params.Records(), other.Params.Records())
	require.NoError(t, LoadModel(fname, other.Params, other.Stats))
	if diff := cmp.Diff(gen.Params.Records(), other.Params.Records()); diff != "" {
		t.Errorf("Parameters mismatch (-want +got):\n%s", diff)
	}

	// discriminator's layout doesn't fit generator's file
	_, dis := testNetworks(t, 1)
	assert.Error(t, LoadModel(fname, dis.Params, dis.Stats))

	// non-finite values are rejected
	avgVar, _ := gen.Stats.Get("bn1/avg_var")
	denseData(t, avgVar)[0] = math32.NaN()
	require.NoError(t, SaveModel(fname, gen.Params, gen.Stats))
	assert.Error(t, LoadModel(fname, other.Params, other.Stats))
}
