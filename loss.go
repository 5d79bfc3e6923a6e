package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

type LossReduction uint16

const (
	LossReductionSum = LossReduction(iota)
	LossReductionMean
)

// SoftplusLoss Reduces softplus(sign*logits). Numerically stable form of -log(sigmoid(-sign*logits)).
//
// sign - must be 1 or -1. With -1 loss pushes logits up, with 1 pushes them down
// Default reduction is 'mean'
//
func SoftplusLoss(logits *gorgonia.Node, sign float32, reduction ...LossReduction) (*gorgonia.Node, error) {
	if sign != 1 && sign != -1 {
		return nil, fmt.Errorf("Sign must be 1 or -1, but got %v", sign)
	}
	x := logits
	if sign < 0 {
		neg, err := gorgonia.Neg(logits)
		if err != nil {
			return nil, errors.Wrap(err, "Can't do -1*x")
		}
		x = neg
	}
	sp, err := gorgonia.Softplus(x)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(1+exp(x))")
	}
	reductionDefault := LossReductionMean
	if len(reduction) != 0 {
		reductionDefault = reduction[0]
	}
	switch reductionDefault {
	case LossReductionSum:
		return gorgonia.Sum(sp)
	case LossReductionMean:
		return gorgonia.Mean(sp)
	default:
		return nil, fmt.Errorf("Reduction type %d is not supported", reductionDefault)
	}
}

// DiscriminatorLoss Loss of discriminator: mean(softplus(-D(real))) + mean(softplus(D(fake)))
//
// real - logits of real images, shape (batch, 1)
// fake - logits of generated images, shape (batch, 1)
//
func DiscriminatorLoss(real, fake *gorgonia.Node) (*gorgonia.Node, error) {
	realLoss, err := SoftplusLoss(real, -1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't evaluate loss on real images")
	}
	fakeLoss, err := SoftplusLoss(fake, 1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't evaluate loss on generated images")
	}
	loss, err := gorgonia.Add(realLoss, fakeLoss)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+y)")
	}
	return loss, nil
}

// GeneratorLoss Loss of generator: mean(softplus(-D(fake)))
func GeneratorLoss(fake *gorgonia.Node) (*gorgonia.Node, error) {
	loss, err := SoftplusLoss(fake, -1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't evaluate loss on generated images")
	}
	return loss, nil
}
