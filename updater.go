package dcgan_go

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
)

// UpdaterConfig Settings of Updater
//
// BatchSize - number of samples in every step
// Seed - base seed of latent sampling. The n-th latent batch (rejected steps included) is drawn from source seeded by Seed+n
// CheckFinite - if true, step with NaN/Inf loss is rejected with ErrNonFiniteLoss and nothing is mutated
//
type UpdaterConfig struct {
	BatchSize   int
	Seed        int64
	CheckFinite bool
}

// Report Result of single step
type Report struct {
	Epoch      int
	Iteration  int
	GenLoss    float32
	DisLoss    float32
	IsNewEpoch bool
}

// Updater Performs adversarial training steps: both networks are updated once per step
type Updater struct {
	Generator     *Generator
	Discriminator *Discriminator
	Dataset       *TrainSet
	Iterator      *SerialIterator
	OptGen        *Adam
	OptDis        *Adam
	Config        UpdaterConfig

	gan       *GAN
	disGraph  *discriminatorGraph
	iteration int
	// number of latent batches drawn, rejected steps included
	draws int
}

// NewUpdater Defines training graphs of both networks
func NewUpdater(gen *Generator, dis *Discriminator, dataset *TrainSet, iter *SerialIterator, optGen, optDis *Adam, conf UpdaterConfig) (*Updater, error) {
	if conf.BatchSize < 1 {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("batch size must be positive, but got %d", conf.BatchSize))
	}
	if iter.BatchSize() != conf.BatchSize {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("iterator's batch size is %d, but updater's one is %d", iter.BatchSize(), conf.BatchSize))
	}
	if iter.Len() != dataset.DataLength {
		return nil, fmt.Errorf("[Updater] Iterator goes over %d samples, but dataset has %d", iter.Len(), dataset.DataLength)
	}
	if err := checkCompatible(gen, dis); err != nil {
		return nil, errors.Wrap(err, "[Updater]")
	}
	if dataset.Height() != dis.Config.ImageHeight || dataset.Width() != dis.Config.ImageWidth {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("[Updater] Dataset has %dx%d images, but Discriminator expects %dx%d", dataset.Height(), dataset.Width(), dis.Config.ImageHeight, dis.Config.ImageWidth))
	}
	gan, err := NewGAN(gen, dis, conf.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "[Updater]")
	}
	disGraph, err := newDiscriminatorGraph(dis, conf.BatchSize)
	if err != nil {
		gan.Close()
		return nil, errors.Wrap(err, "[Updater]")
	}
	return &Updater{
		Generator:     gen,
		Discriminator: dis,
		Dataset:       dataset,
		Iterator:      iter,
		OptGen:        optGen,
		OptDis:        optDis,
		Config:        conf,
		gan:           gan,
		disGraph:      disGraph,
	}, nil
}

// Iteration Returns number of performed steps
func (upd *Updater) Iteration() int {
	return upd.iteration
}

// Epoch Returns number of completed epochs
func (upd *Updater) Epoch() int {
	return upd.Iterator.Epoch()
}

// IsNewEpoch Returns true if the last step crossed epoch boundary
func (upd *Updater) IsNewEpoch() bool {
	return upd.Iterator.IsNewEpoch()
}

// Update Performs single training step.
//
// Both losses and all gradients are evaluated before anything is mutated. On ErrNonFiniteLoss
// parameters, running statistics, optimizers and iteration counter stay untouched
// (iterator has moved to the next batch and latent source has been consumed though).
//
func (upd *Updater) Update() (*Report, error) {
	defer upd.gan.Reset()
	defer upd.disGraph.vm.Reset()

	real, err := upd.Dataset.Batch(upd.Iterator.Next())
	if err != nil {
		return nil, errors.Wrap(err, "[Updater] Can't gather real batch")
	}
	rnd := rand.New(rand.NewSource(upd.Config.Seed + int64(upd.draws)))
	latent := upd.Generator.MakeHidden(rnd, upd.Config.BatchSize)
	upd.draws++

	if err := upd.gan.Run(latent); err != nil {
		return nil, errors.Wrap(err, "[Updater]")
	}
	fake, err := upd.gan.Fake()
	if err != nil {
		return nil, errors.Wrap(err, "[Updater]")
	}
	if err := upd.disGraph.run(real, fake); err != nil {
		return nil, errors.Wrap(err, "[Updater] Can't run discriminator graph")
	}

	genLoss, err := upd.gan.Loss()
	if err != nil {
		return nil, errors.Wrap(err, "[Updater] Can't read generator loss")
	}
	disLoss, err := scalarValue(upd.disGraph.lossVal)
	if err != nil {
		return nil, errors.Wrap(err, "[Updater] Can't read discriminator loss")
	}
	report := &Report{
		Epoch:      upd.Iterator.Epoch(),
		Iteration:  upd.iteration,
		GenLoss:    genLoss,
		DisLoss:    disLoss,
		IsNewEpoch: upd.Iterator.IsNewEpoch(),
	}
	if upd.Config.CheckFinite && (!isFinite(genLoss) || !isFinite(disLoss)) {
		if err := upd.gan.generatorPart.ZeroGrads(); err != nil {
			return nil, errors.Wrap(err, "[Updater]")
		}
		if err := upd.disGraph.net.ZeroGrads(); err != nil {
			return nil, errors.Wrap(err, "[Updater]")
		}
		return report, errors.Wrap(ErrNonFiniteLoss, fmt.Sprintf("iteration %d: gen/loss = %v, dis/loss = %v", upd.iteration, genLoss, disLoss))
	}

	if err := upd.disGraph.apply(upd.OptDis); err != nil {
		return nil, errors.Wrap(err, "[Updater]")
	}
	if err := upd.gan.Apply(upd.OptGen); err != nil {
		return nil, errors.Wrap(err, "[Updater]")
	}
	upd.iteration++
	report.Iteration = upd.iteration
	return report, nil
}

// Snapshot Exports full training state
func (upd *Updater) Snapshot() *Snapshot {
	return &Snapshot{
		Iteration:              upd.iteration,
		LatentDraws:            upd.draws,
		Seed:                   upd.Config.Seed,
		Iterator:               upd.Iterator.State(),
		GeneratorParams:        upd.Generator.Params.Records(),
		GeneratorStats:         upd.Generator.Stats.Records(),
		DiscriminatorParams:    upd.Discriminator.Params.Records(),
		DiscriminatorStats:     upd.Discriminator.Stats.Records(),
		GeneratorOptimizer:     upd.OptGen.State(),
		DiscriminatorOptimizer: upd.OptDis.State(),
	}
}

// Restore Replaces training state by snapshot. Graph nodes are synchronized with restored parameters.
func (upd *Updater) Restore(snap *Snapshot) error {
	if snap.Iteration < 0 {
		return fmt.Errorf("[Updater] Iteration must be non-negative, but got %d", snap.Iteration)
	}
	if snap.LatentDraws < snap.Iteration {
		return fmt.Errorf("[Updater] Latent draws (%d) can't be less than iteration (%d)", snap.LatentDraws, snap.Iteration)
	}
	if err := checkRecords(snap.GeneratorParams, snap.GeneratorStats, snap.DiscriminatorParams, snap.DiscriminatorStats); err != nil {
		return errors.Wrap(err, "[Updater] Can't restore")
	}
	// validate everything on copies first
	genParams, genStats := upd.Generator.Params.Clone(), upd.Generator.Stats.Clone()
	disParams, disStats := upd.Discriminator.Params.Clone(), upd.Discriminator.Stats.Clone()
	for _, l := range []struct {
		ps      *ParamSet
		records []ParamRecord
		what    string
	}{
		{genParams, snap.GeneratorParams, "generator parameters"},
		{genStats, snap.GeneratorStats, "generator statistics"},
		{disParams, snap.DiscriminatorParams, "discriminator parameters"},
		{disStats, snap.DiscriminatorStats, "discriminator statistics"},
	} {
		if err := l.ps.Load(l.records); err != nil {
			return errors.Wrap(err, fmt.Sprintf("[Updater] Can't restore %s", l.what))
		}
	}
	iter := *upd.Iterator
	if err := iter.Restore(snap.Iterator); err != nil {
		return errors.Wrap(err, "[Updater] Can't restore iterator")
	}
	optGen, optDis := &Adam{}, &Adam{}
	if err := optGen.Restore(snap.GeneratorOptimizer); err != nil {
		return errors.Wrap(err, "[Updater] Can't restore generator optimizer")
	}
	if err := optDis.Restore(snap.DiscriminatorOptimizer); err != nil {
		return errors.Wrap(err, "[Updater] Can't restore discriminator optimizer")
	}
	if err := upd.Generator.Params.CopyFrom(genParams); err != nil {
		return errors.Wrap(err, "[Updater]")
	}
	if err := upd.Generator.Stats.CopyFrom(genStats); err != nil {
		return errors.Wrap(err, "[Updater]")
	}
	if err := upd.Discriminator.Params.CopyFrom(disParams); err != nil {
		return errors.Wrap(err, "[Updater]")
	}
	if err := upd.Discriminator.Stats.CopyFrom(disStats); err != nil {
		return errors.Wrap(err, "[Updater]")
	}
	if err := upd.gan.Sync(); err != nil {
		return errors.Wrap(err, "[Updater] Can't sync generator graph")
	}
	if err := upd.disGraph.net.Push(upd.Discriminator.Params, nil); err != nil {
		return errors.Wrap(err, "[Updater] Can't sync discriminator graph")
	}
	*upd.Iterator = iter
	*upd.OptGen = *optGen
	*upd.OptDis = *optDis
	upd.iteration = snap.Iteration
	upd.draws = snap.LatentDraws
	upd.Config.Seed = snap.Seed
	return nil
}

// Close Releases tape machines
func (upd *Updater) Close() error {
	errGen := upd.gan.Close()
	errDis := upd.disGraph.vm.Close()
	if errGen != nil {
		return errGen
	}
	return errDis
}
