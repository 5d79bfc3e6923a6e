package dcgan_go

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

// Trainer Drives Updater through epochs: logs losses, writes snapshots and previews
type Trainer struct {
	Config  Config
	Updater *Updater
	Log     *logrus.Logger

	report        *LogReport
	sampler       *Sampler
	previewLatent *tensor.Dense
}

// NewTrainer Creates networks, optimizers and updater for provided dataset.
// If Config.Resume is set, training state is restored from that snapshot.
func NewTrainer(conf Config, dataset *TrainSet, logger *logrus.Logger) (*Trainer, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "[Trainer]")
	}
	rnd := rand.New(rand.NewSource(conf.TrainSeed))
	gen, err := NewGenerator(conf.GeneratorConfig(), rnd)
	if err != nil {
		return nil, errors.Wrap(err, "[Trainer]")
	}
	outShape := gen.OutputShape(1)
	if dataset.Height() != outShape[2] || dataset.Width() != outShape[3] {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("[Trainer] Generator produces %dx%d images, but dataset has %dx%d", outShape[2], outShape[3], dataset.Height(), dataset.Width()))
	}
	dis, err := NewDiscriminator(conf.DiscriminatorConfig(outShape[2], outShape[3]), rnd)
	if err != nil {
		return nil, errors.Wrap(err, "[Trainer]")
	}
	optGen, err := NewAdam(conf.AdamConfig())
	if err != nil {
		return nil, errors.Wrap(err, "[Trainer]")
	}
	optDis, err := NewAdam(conf.AdamConfig())
	if err != nil {
		return nil, errors.Wrap(err, "[Trainer]")
	}
	iter, err := NewSerialIterator(dataset.DataLength, conf.BatchSize, conf.TrainSeed)
	if err != nil {
		return nil, errors.Wrap(err, "[Trainer]")
	}
	upd, err := NewUpdater(gen, dis, dataset, iter, optGen, optDis, UpdaterConfig{
		BatchSize:   conf.BatchSize,
		Seed:        conf.TrainSeed,
		CheckFinite: conf.CheckFinite,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Trainer]")
	}
	previews := conf.PreviewRows * conf.PreviewCols
	sampler, err := NewSampler(gen, previews, ModeInference)
	if err != nil {
		upd.Close()
		return nil, errors.Wrap(err, "[Trainer]")
	}
	tr := &Trainer{
		Config:        conf,
		Updater:       upd,
		Log:           logger,
		report:        NewLogReport(),
		sampler:       sampler,
		previewLatent: gen.MakeHidden(rand.New(rand.NewSource(conf.Seed)), previews),
	}
	if conf.Resume != "" {
		if err := tr.resume(conf.Resume); err != nil {
			tr.Close()
			return nil, err
		}
	}
	return tr, nil
}

func (tr *Trainer) resume(fname string) error {
	snap, err := LoadSnapshot(fname)
	if err != nil {
		return errors.Wrap(err, "[Trainer] Can't load snapshot")
	}
	if err := tr.Updater.Restore(snap); err != nil {
		return errors.Wrap(err, "[Trainer]")
	}
	if history, err := LoadLog(filepath.Join(tr.Config.Out, "log.json")); err == nil {
		tr.report.Restore(history)
	}
	tr.Log.WithFields(logrus.Fields{
		"snapshot":  fname,
		"epoch":     tr.Updater.Epoch(),
		"iteration": tr.Updater.Iteration(),
	}).Info("Training has been resumed")
	return nil
}

// Run Trains until Config.Epoch epochs are completed. Cancellation of context is checked between steps:
// snapshot 'snapshot_interrupted.gob' is written and context's error is returned.
func (tr *Trainer) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(tr.Config.Out, "preview"), 0755); err != nil {
		return errors.Wrap(err, "[Trainer] Can't create output directory")
	}
	if err := SaveConfig(filepath.Join(tr.Config.Out, "config.toml"), tr.Config); err != nil {
		tr.Log.WithError(err).Warn("Can't save effective config")
	}
	device := "cpu"
	if tr.Config.GPU >= 0 {
		device = fmt.Sprintf("gpu:%d (requires gorgonia built with 'cuda' tag, CPU is used otherwise)", tr.Config.GPU)
	}
	tr.Log.WithFields(logrus.Fields{
		"device":    device,
		"batchsize": tr.Config.BatchSize,
		"n_hidden":  tr.Config.NHidden,
		"epoch":     tr.Config.Epoch,
		"samples":   tr.Updater.Dataset.DataLength,
	}).Info("Training has been started")

	upd := tr.Updater
	for upd.Epoch() < tr.Config.Epoch {
		select {
		case <-ctx.Done():
			tr.flush()
			tr.snapshot("snapshot_interrupted.gob")
			tr.Log.WithFields(logrus.Fields{
				"epoch":     upd.Epoch(),
				"iteration": upd.Iteration(),
			}).Warn("Training has been interrupted")
			return ctx.Err()
		default:
		}
		report, err := upd.Update()
		if err != nil {
			if errors.Is(err, ErrNonFiniteLoss) && tr.Config.SkipNonFinite {
				tr.Log.WithError(err).Warn("Step has been skipped")
				// iterator has moved anyway
				if report != nil && report.IsNewEpoch {
					tr.epochEnd(upd.Epoch())
				}
				continue
			}
			return errors.Wrap(err, "[Trainer]")
		}
		tr.report.Observe(report)
		iteration := upd.Iteration()
		if iteration%tr.Config.DisplayInterval == 0 {
			tr.flush()
		}
		if tr.Config.SnapshotInterval > 0 && iteration%tr.Config.SnapshotInterval == 0 {
			tr.snapshot(fmt.Sprintf("snapshot_iter_%d.gob", iteration))
		}
		if report.IsNewEpoch {
			tr.epochEnd(upd.Epoch())
		}
	}
	tr.flush()
	tr.Log.WithFields(logrus.Fields{
		"epoch":     upd.Epoch(),
		"iteration": upd.Iteration(),
	}).Info("Training has been finished")
	return nil
}

// flush Summarizes pending reports, prints them and redraws log files
func (tr *Trainer) flush() {
	if tr.report.Pending() == 0 {
		return
	}
	entry, err := tr.report.Summary(tr.Updater.Epoch(), tr.Updater.Iteration())
	if err != nil {
		tr.Log.WithError(err).Warn("Can't summarize losses")
		return
	}
	tr.Log.WithFields(logrus.Fields{
		"epoch":     entry.Epoch,
		"iteration": entry.Iteration,
		"gen/loss":  entry.GenLoss,
		"dis/loss":  entry.DisLoss,
		"elapsed":   time.Duration(entry.Elapsed * float64(time.Second)).Round(time.Millisecond).String(),
	}).Info("Report")
	if err := tr.report.Save(filepath.Join(tr.Config.Out, "log.json")); err != nil {
		tr.Log.WithError(err).Warn("Can't save log")
	}
	if err := PlotLosses(tr.report.History(), filepath.Join(tr.Config.Out, "loss.png")); err != nil {
		tr.Log.WithError(err).Warn("Can't plot losses")
	}
}

func (tr *Trainer) snapshot(name string) {
	if err := SaveSnapshot(filepath.Join(tr.Config.Out, name), tr.Updater.Snapshot()); err != nil {
		tr.Log.WithError(err).WithField("file", name).Warn("Can't save snapshot")
	}
}

// epochEnd Writes snapshots of training state and both models, renders preview
func (tr *Trainer) epochEnd(epoch int) {
	tr.snapshot(fmt.Sprintf("snapshot_epoch_%d.gob", epoch))
	upd := tr.Updater
	if err := SaveModel(filepath.Join(tr.Config.Out, fmt.Sprintf("gen_epoch_%d.gob", epoch)), upd.Generator.Params, upd.Generator.Stats); err != nil {
		tr.Log.WithError(err).Warn("Can't save generator")
	}
	if err := SaveModel(filepath.Join(tr.Config.Out, fmt.Sprintf("dis_epoch_%d.gob", epoch)), upd.Discriminator.Params, upd.Discriminator.Stats); err != nil {
		tr.Log.WithError(err).Warn("Can't save discriminator")
	}
	if err := tr.preview(epoch); err != nil {
		tr.Log.WithError(err).Warn("Can't render preview")
	}
}

func (tr *Trainer) preview(epoch int) error {
	images, err := tr.sampler.Generate(tr.previewLatent)
	if err != nil {
		return err
	}
	grid := Grid{Rows: tr.Config.PreviewRows, Cols: tr.Config.PreviewCols, Scale: 2, Padding: 2}
	img, err := grid.Render(images, fmt.Sprintf("Epoch %d, Iteration %d", epoch, tr.Updater.Iteration()))
	if err != nil {
		return err
	}
	return SavePNG(filepath.Join(tr.Config.Out, "preview", fmt.Sprintf("image_epoch_%d.png", epoch)), img)
}

// Close Releases tape machines
func (tr *Trainer) Close() error {
	errSampler := tr.sampler.Close()
	if err := tr.Updater.Close(); err != nil {
		return err
	}
	return errSampler
}
