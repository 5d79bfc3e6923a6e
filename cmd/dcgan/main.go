package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	dcgan "github.com/LdDl/dcgan-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	configFile = flag.String("config", "", "TOML file with settings (flags override it)")

	defaults         = dcgan.DefaultConfig()
	batchSize        = flag.Int("batchsize", defaults.BatchSize, "number of images in each mini-batch")
	epoch            = flag.Int("epoch", defaults.Epoch, "number of sweeps over the dataset to train")
	gpu              = flag.Int("gpu", defaults.GPU, "GPU ID (negative value indicates CPU)")
	out              = flag.String("out", defaults.Out, "directory to output the result")
	resume           = flag.String("resume", defaults.Resume, "resume the training from snapshot")
	nHidden          = flag.Int("n_hidden", defaults.NHidden, "number of hidden units (z)")
	seed             = flag.Int64("seed", defaults.Seed, "random seed of z at visualization stage")
	trainSeed        = flag.Int64("train_seed", defaults.TrainSeed, "random seed of initialization, shuffling and z at training stage")
	snapshotInterval = flag.Int("snapshot_interval", defaults.SnapshotInterval, "interval of snapshot (iterations, 0 disables)")
	displayInterval  = flag.Int("display_interval", defaults.DisplayInterval, "interval of displaying log to console")
	dataset          = flag.String("dataset", defaults.Dataset, "directory with training images")
	skipNonFinite    = flag.Bool("skip_nonfinite", defaults.SkipNonFinite, "skip steps with NaN/Inf losses instead of aborting")
	verbose          = flag.Bool("verbose", false, "debug logging")
)

// applyFlags Overrides config values by flags which have been set explicitly
func applyFlags(conf *dcgan.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "batchsize":
			conf.BatchSize = *batchSize
		case "epoch":
			conf.Epoch = *epoch
		case "gpu":
			conf.GPU = *gpu
		case "out":
			conf.Out = *out
		case "resume":
			conf.Resume = *resume
		case "n_hidden":
			conf.NHidden = *nHidden
		case "seed":
			conf.Seed = *seed
		case "train_seed":
			conf.TrainSeed = *trainSeed
		case "snapshot_interval":
			conf.SnapshotInterval = *snapshotInterval
		case "display_interval":
			conf.DisplayInterval = *displayInterval
		case "dataset":
			conf.Dataset = *dataset
		case "skip_nonfinite":
			conf.SkipNonFinite = *skipNonFinite
		}
	})
}

func main() {
	flag.Parse()
	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	conf := dcgan.DefaultConfig()
	if *configFile != "" {
		var err error
		if conf, err = dcgan.LoadConfig(*configFile); err != nil {
			logger.Fatalln(err)
		}
	}
	applyFlags(&conf)
	if err := conf.Validate(); err != nil {
		logger.Fatalln(err)
	}
	if conf.Dataset == "" {
		logger.Fatalln("Dataset directory must be provided (-dataset or 'dataset' key in config)")
	}

	// images are resized to the resolution Generator produces
	side := conf.GeneratorConfig().OutputSize()
	trainSet, err := dcgan.LoadImages(conf.Dataset, side, side)
	if err != nil {
		logger.Fatalln(err)
	}
	logger.WithFields(logrus.Fields{
		"gpu":       conf.GPU,
		"batchsize": conf.BatchSize,
		"n_hidden":  conf.NHidden,
		"epoch":     conf.Epoch,
		"images":    trainSet.DataLength,
		"height":    side,
		"width":     side,
	}).Info("Dataset has been loaded")

	trainer, err := dcgan.NewTrainer(conf, trainSet, logger)
	if err != nil {
		logger.Fatalln(err)
	}
	defer trainer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := trainer.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warnln("Training has been stopped by signal")
			return
		}
		logger.Fatalln(err)
	}
}
