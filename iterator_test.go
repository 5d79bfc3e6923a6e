package dcgan_go

import (
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialIteratorWrap(t *testing.T) {
	it, err := NewSerialIterator(5, 2, 11)
	require.NoError(t, err)
	first := append([]int(nil), it.order...)

	seen := append(it.Next(), it.Next()...)
	assert.Equal(t, first[:4], seen)
	assert.Equal(t, 0, it.Epoch())
	assert.False(t, it.IsNewEpoch())
	assert.InDelta(t, 0.8, it.EpochDetail(), 1e-9)

	wrapped := it.Next()
	require.Len(t, wrapped, 2)
	assert.Equal(t, first[4], wrapped[0])
	assert.Equal(t, 1, it.Epoch())
	assert.True(t, it.IsNewEpoch())
	assert.Equal(t, it.order[0], wrapped[1])
	assert.InDelta(t, 1.2, it.EpochDetail(), 1e-9)

	it.Next()
	assert.False(t, it.IsNewEpoch())
}

func TestSerialIteratorPermutation(t *testing.T) {
	it, err := NewSerialIterator(6, 3, 0)
	require.NoError(t, err)
	for epoch := 0; epoch < 3; epoch++ {
		indices := append(it.Next(), it.Next()...)
		sort.Ints(indices)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, indices, "epoch %d", epoch)
		assert.True(t, it.IsNewEpoch())
	}
	assert.Equal(t, 3, it.Epoch())
}

func TestSerialIteratorWholeDataset(t *testing.T) {
	it, err := NewSerialIterator(4, 4, 1)
	require.NoError(t, err)
	batch := it.Next()
	sort.Ints(batch)
	assert.Equal(t, []int{0, 1, 2, 3}, batch)
	assert.Equal(t, 1, it.Epoch())
	assert.True(t, it.IsNewEpoch())
}

func TestSerialIteratorRestore(t *testing.T) {
	a, err := NewSerialIterator(7, 3, 5)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		a.Next()
	}
	b, err := NewSerialIterator(7, 3, 99)
	require.NoError(t, err)
	require.NoError(t, b.Restore(a.State()))
	assert.Equal(t, a.State(), b.State())
	for i := 0; i < 6; i++ {
		assert.Equal(t, a.Next(), b.Next(), "step %d", i)
	}

	assert.Error(t, b.Restore(IteratorState{Position: 7}))
	assert.Error(t, b.Restore(IteratorState{Epoch: -1}))
}

func TestSerialIteratorErrors(t *testing.T) {
	_, err := NewSerialIterator(3, 4, 0)
	assert.True(t, errors.Is(err, ErrDatasetTooSmall), "%v", err)
	_, err = NewSerialIterator(3, 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)
}
