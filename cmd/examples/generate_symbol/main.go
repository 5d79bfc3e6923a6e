package main

import (
	"context"
	"fmt"
	"image"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"

	dcgan "github.com/LdDl/dcgan-go"
	"github.com/sirupsen/logrus"
)

var (
	symbolHeight = 10
	symbolWidth  = 8
	numSamples   = 32
	firstEpoches = 3
	numEpoches   = 6
)

// genSyntheticData 'H' char in binary representation, thickened differently for every sample
func genSyntheticData(numSamples int) [][]float32 {
	f32data := []float32{
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 1, 1, 0, 0, 1, 1, 0,
		0, 1, 1, 0, 0, 1, 1, 0,
		0, 1, 1, 0, 0, 1, 1, 0,
		0, 1, 1, 1, 1, 1, 1, 0,
		0, 1, 1, 1, 1, 1, 1, 0,
		0, 1, 1, 0, 0, 1, 1, 0,
		0, 1, 1, 0, 0, 1, 1, 0,
		0, 1, 1, 0, 0, 1, 1, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	symbols := make([][]float32, numSamples)
	for i := range symbols {
		intensity := 0.5 + 0.5*float32(i)/float32(numSamples)
		symbols[i] = make([]float32, len(f32data))
		for j := range f32data {
			symbols[i][j] = f32data[j] * intensity
		}
	}
	return symbols
}

// Trains for a few epoches, then continues training from the snapshot of the last epoch
func main() {
	logger := logrus.New()
	outputFolder, err := ioutil.TempDir("", "symbol")
	if err != nil {
		logger.Fatalln(err)
	}
	defer os.RemoveAll(outputFolder)

	conf := dcgan.DefaultConfig()
	conf.BatchSize = 8
	conf.NHidden = 8
	conf.Ch = 16
	conf.DisplayInterval = 4
	conf.SnapshotInterval = 0
	conf.PreviewRows = 2
	conf.PreviewCols = 2
	conf.Out = outputFolder

	// symbols are stored in their own resolution and resized like any other image
	side := conf.GeneratorConfig().OutputSize()
	symbols := genSyntheticData(numSamples)
	images := make([]image.Image, len(symbols))
	for i := range symbols {
		images[i] = dcgan.ToImage(symbols[i], symbolHeight, symbolWidth)
	}
	trainSet, err := dcgan.NewTrainSetFromImages(images, side, side)
	if err != nil {
		logger.Fatalln(err)
	}

	conf.Epoch = firstEpoches
	first, err := dcgan.NewTrainer(conf, trainSet, logger)
	if err != nil {
		logger.Fatalln(err)
	}
	if err := first.Run(context.Background()); err != nil {
		logger.Fatalln(err)
	}
	first.Close()

	conf.Epoch = numEpoches
	conf.Resume = filepath.Join(outputFolder, fmt.Sprintf("snapshot_epoch_%d.gob", firstEpoches))
	second, err := dcgan.NewTrainer(conf, trainSet, logger)
	if err != nil {
		logger.Fatalln(err)
	}
	defer second.Close()
	if err := second.Run(context.Background()); err != nil {
		logger.Fatalln(err)
	}

	sampler, err := dcgan.NewSampler(second.Updater.Generator, 1, dcgan.ModeInference)
	if err != nil {
		logger.Fatalln(err)
	}
	defer sampler.Close()
	latent := second.Updater.Generator.MakeHidden(rand.New(rand.NewSource(1337)), 1)
	generated, err := sampler.Generate(latent)
	if err != nil {
		logger.Fatalln(err)
	}
	fmt.Println("Generated symbol:")
	fmt.Print(dcgan.ASCII(generated.Data().([]float32), side, side))
}
