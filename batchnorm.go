package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const (
	// DefaultBatchNormDecay Decay of running statistics
	DefaultBatchNormDecay = 0.9
	// DefaultBatchNormEps Added to variance to avoid division by zero
	DefaultBatchNormEps = 2e-5
)

// Mode Defines whether batch normalization uses batch statistics (training) or running statistics (inference)
type Mode uint16

const (
	ModeTraining = Mode(iota)
	ModeInference
)

func (m Mode) String() string {
	if m == ModeInference {
		return "inference"
	}
	return "training"
}

// BatchNorm Per-channel normalization of (batch, channels, height, width) tensors.
//
// Gamma - learnable scale. Could be nil: then scale is fixed to 1
// Beta - learnable shift
// AvgMean, AvgVar - running statistics (used in ModeInference only)
//
type BatchNorm struct {
	Name     string
	Channels int
	Decay    float64
	Eps      float64
	Mode     Mode

	Gamma   *gorgonia.Node
	Beta    *gorgonia.Node
	AvgMean *gorgonia.Node
	AvgVar  *gorgonia.Node

	observations []*batchStats
}

// batchStats Statistics of single forward pass in training mode, read back after graph execution
type batchStats struct {
	mean     gorgonia.Value
	variance gorgonia.Value
	count    int
}

// Fwd Normalizes input
func (bn *BatchNorm) Fwd(input *gorgonia.Node, batchSize int) (*gorgonia.Node, error) {
	if input.Dims() != 4 {
		return nil, fmt.Errorf("Batch normalization '%s' expects 4D input, but got %v", bn.Name, input.Shape())
	}
	if input.Shape()[1] != bn.Channels {
		return nil, errors.Wrap(ErrChannelMismatch, fmt.Sprintf("Batch normalization '%s' expects %d channels, but got %d", bn.Name, bn.Channels, input.Shape()[1]))
	}
	pattern := spatialPattern(batchSize)
	channelShape := tensor.Shape{1, bn.Channels, 1, 1}
	eps := gorgonia.NewConstant(float32(bn.Eps))

	var mean, variance *gorgonia.Node
	var err error
	switch bn.Mode {
	case ModeTraining:
		if mean, err = channelMean(input); err != nil {
			return nil, errors.Wrap(err, "Can't evaluate batch mean")
		}
	case ModeInference:
		if bn.AvgMean == nil || bn.AvgVar == nil {
			return nil, fmt.Errorf("Batch normalization '%s' has no running statistics", bn.Name)
		}
		mean = bn.AvgMean
	default:
		return nil, fmt.Errorf("Mode '%d' (uint16) is not handled", bn.Mode)
	}

	meanR, err := gorgonia.Reshape(mean, channelShape)
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape mean")
	}
	centered, err := gorgonia.BroadcastSub(input, meanR, nil, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (X-mean)")
	}

	if bn.Mode == ModeTraining {
		sqr, err := gorgonia.Square(centered)
		if err != nil {
			return nil, errors.Wrap(err, "Can't do (x^2)")
		}
		if variance, err = channelMean(sqr); err != nil {
			return nil, errors.Wrap(err, "Can't evaluate batch variance")
		}
		shp := input.Shape()
		stats := &batchStats{count: shp[0] * shp[2] * shp[3]}
		gorgonia.Read(mean, &stats.mean)
		gorgonia.Read(variance, &stats.variance)
		bn.observations = append(bn.observations, stats)
	} else {
		variance = bn.AvgVar
	}

	shifted, err := gorgonia.Add(variance, eps)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (var+eps)")
	}
	invStd, err := gorgonia.InverseSqrt(shifted)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do 1/sqrt(x)")
	}
	invStdR, err := gorgonia.Reshape(invStd, channelShape)
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape inverted std")
	}
	normalized, err := gorgonia.BroadcastHadamardProd(centered, invStdR, nil, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "Can't normalize")
	}

	if bn.Gamma != nil {
		gammaR, err := gorgonia.Reshape(bn.Gamma, channelShape)
		if err != nil {
			return nil, errors.Wrap(err, "Can't reshape gamma")
		}
		if normalized, err = gorgonia.BroadcastHadamardProd(normalized, gammaR, nil, pattern); err != nil {
			return nil, errors.Wrap(err, "Can't scale by gamma")
		}
	}
	if bn.Beta != nil {
		betaR, err := gorgonia.Reshape(bn.Beta, channelShape)
		if err != nil {
			return nil, errors.Wrap(err, "Can't reshape beta")
		}
		if normalized, err = gorgonia.BroadcastAdd(normalized, betaR, nil, pattern); err != nil {
			return nil, errors.Wrap(err, "Can't shift by beta")
		}
	}
	return normalized, nil
}

// UpdateRunningStats Folds statistics of the last executed forward passes into running mean and variance.
// Variance is corrected to unbiased estimation.
func (bn *BatchNorm) UpdateRunningStats(avgMean, avgVar *tensor.Dense) error {
	runningMean := avgMean.Data().([]float32)
	runningVar := avgVar.Data().([]float32)
	decay := float32(bn.Decay)
	for i, obs := range bn.observations {
		if obs.mean == nil || obs.variance == nil {
			return fmt.Errorf("Statistics #%d of '%s' have not been evaluated yet", i, bn.Name)
		}
		mean, ok := obs.mean.Data().([]float32)
		if !ok || len(mean) != len(runningMean) {
			return fmt.Errorf("Unexpected batch mean of '%s': %v", bn.Name, obs.mean.Shape())
		}
		variance, ok := obs.variance.Data().([]float32)
		if !ok || len(variance) != len(runningVar) {
			return fmt.Errorf("Unexpected batch variance of '%s': %v", bn.Name, obs.variance.Shape())
		}
		adjust := float32(1)
		if obs.count > 1 {
			adjust = float32(obs.count) / float32(obs.count-1)
		}
		for c := range runningMean {
			runningMean[c] = decay*runningMean[c] + (1-decay)*mean[c]
			runningVar[c] = decay*runningVar[c] + (1-decay)*adjust*variance[c]
		}
	}
	return nil
}

// channelMean Mean over every axis except channels: (B, C, H, W) => (C)
func channelMean(x *gorgonia.Node) (*gorgonia.Node, error) {
	retVal, err := gorgonia.Mean(x, 3)
	if err != nil {
		return nil, err
	}
	if retVal, err = gorgonia.Mean(retVal, 2); err != nil {
		return nil, err
	}
	return gorgonia.Mean(retVal, 0)
}
