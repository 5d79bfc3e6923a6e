package dcgan_go

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig Hyper-parameters or settings are out of their domain
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrChannelMismatch Number of channels produced by one component doesn't match number expected by the next one
	ErrChannelMismatch = errors.New("channel count mismatch")
	// ErrNonFiniteLoss Loss evaluated to NaN or Inf, step has been skipped
	ErrNonFiniteLoss = errors.New("non-finite loss")
	// ErrDatasetTooSmall Dataset has fewer samples than single batch
	ErrDatasetTooSmall = errors.New("dataset is smaller than batch")
)
