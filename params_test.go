package dcgan_go

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamSet(t *testing.T) {
	ps := NewParamSet()
	require.NoError(t, ps.Add("w", filledDense(2, 2, 3)))
	require.NoError(t, ps.Add("b", filledDense(0, 3)))
	assert.Error(t, ps.Add("w", filledDense(1, 1)))
	assert.Equal(t, []string{"w", "b"}, ps.Names())
	assert.Equal(t, 2, ps.Len())

	cloned := ps.Clone()
	w, _ := cloned.Get("w")
	denseData(t, w)[0] = 42
	orig, _ := ps.Get("w")
	assert.Equal(t, float32(2), denseData(t, orig)[0])

	require.NoError(t, ps.CopyFrom(cloned))
	assert.Equal(t, float32(42), denseData(t, orig)[0])
	if diff := cmp.Diff(cloned.Records(), ps.Records()); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
}

func TestParamSetLoadErrors(t *testing.T) {
	ps := NewParamSet()
	require.NoError(t, ps.Add("w", filledDense(1, 2, 2)))
	records := ps.Records()

	missing := []ParamRecord{{Name: "v", Shape: []int{2, 2}, Data: make([]float32, 4)}}
	assert.Error(t, ps.Load(missing))
	wrongShape := []ParamRecord{{Name: "w", Shape: []int{4}, Data: make([]float32, 4)}}
	assert.Error(t, ps.Load(wrongShape))
	short := []ParamRecord{{Name: "w", Shape: []int{2, 2}, Data: make([]float32, 3)}}
	assert.Error(t, ps.Load(short))
	extra := append(records, ParamRecord{Name: "x", Shape: []int{1}, Data: []float32{0}})
	assert.Error(t, ps.Load(extra))

	w, _ := ps.Get("w")
	assert.Equal(t, []float32{1, 1, 1, 1}, denseData(t, w))
}

func TestAllFinite(t *testing.T) {
	assert.True(t, allFinite([]float32{0, -1, 3.5}))
	assert.False(t, allFinite([]float32{1, math32.NaN()}))
	assert.False(t, isFinite(math32.Inf(-1)))
}
