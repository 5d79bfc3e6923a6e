package dcgan_go

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
)

// SerialIterator Endless iterator over sample indices with shuffling on every epoch.
//
// When the tail of epoch doesn't fill the whole batch, the batch is completed with the first
// indices of the next epoch's order. Order of epoch `e` depends on (Seed, e) only, so the
// iterator could be restored from its state without replaying previous epochs.
//
type SerialIterator struct {
	size      int
	batchSize int

	seed       int64
	epoch      int
	position   int
	isNewEpoch bool
	order      []int
}

// IteratorState Serializable state of SerialIterator
type IteratorState struct {
	Seed       int64
	Epoch      int
	Position   int
	IsNewEpoch bool
}

// NewSerialIterator Constructor for SerialIterator
//
// size - number of samples in dataset
// batchSize - number of indices returned by Next
// seed - seed of shuffling
//
func NewSerialIterator(size, batchSize int, seed int64) (*SerialIterator, error) {
	if batchSize < 1 {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("batch size must be positive, but got %d", batchSize))
	}
	if size < batchSize {
		return nil, errors.Wrap(ErrDatasetTooSmall, fmt.Sprintf("%d samples for batch of %d", size, batchSize))
	}
	it := &SerialIterator{
		size:      size,
		batchSize: batchSize,
		seed:      seed,
	}
	it.order = it.permutation(0)
	return it, nil
}

func (it *SerialIterator) permutation(epoch int) []int {
	return rand.New(rand.NewSource(it.seed + int64(epoch))).Perm(it.size)
}

// Next Returns indices of the next batch
func (it *SerialIterator) Next() []int {
	batch := make([]int, 0, it.batchSize)
	end := it.position + it.batchSize
	if end < it.size {
		batch = append(batch, it.order[it.position:end]...)
		it.position = end
		it.isNewEpoch = false
		return batch
	}
	batch = append(batch, it.order[it.position:]...)
	it.epoch++
	it.isNewEpoch = true
	it.order = it.permutation(it.epoch)
	rest := end - it.size
	batch = append(batch, it.order[:rest]...)
	it.position = rest
	return batch
}

// Epoch Returns number of completed epochs
func (it *SerialIterator) Epoch() int {
	return it.epoch
}

// IsNewEpoch Returns true if the last Next crossed epoch boundary
func (it *SerialIterator) IsNewEpoch() bool {
	return it.isNewEpoch
}

// EpochDetail Returns fractional number of passed epochs
func (it *SerialIterator) EpochDetail() float64 {
	return float64(it.epoch) + float64(it.position)/float64(it.size)
}

// BatchSize Returns batch size
func (it *SerialIterator) BatchSize() int {
	return it.batchSize
}

// Len Returns size of dataset
func (it *SerialIterator) Len() int {
	return it.size
}

// State Exports iterator state
func (it *SerialIterator) State() IteratorState {
	return IteratorState{
		Seed:       it.seed,
		Epoch:      it.epoch,
		Position:   it.position,
		IsNewEpoch: it.isNewEpoch,
	}
}

// Restore Replaces iterator state by exported one
func (it *SerialIterator) Restore(state IteratorState) error {
	if state.Epoch < 0 {
		return fmt.Errorf("Epoch must be non-negative, but got %d", state.Epoch)
	}
	if state.Position < 0 || state.Position >= it.size {
		return fmt.Errorf("Position must be in [0;%d), but got %d", it.size, state.Position)
	}
	it.seed = state.Seed
	it.epoch = state.Epoch
	it.position = state.Position
	it.isNewEpoch = state.IsNewEpoch
	it.order = it.permutation(it.epoch)
	return nil
}
