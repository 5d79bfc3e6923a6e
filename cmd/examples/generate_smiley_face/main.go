package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"io/ioutil"
	"math/rand"
	"os"

	dcgan "github.com/LdDl/dcgan-go"
	"github.com/sirupsen/logrus"
)

var (
	imgHeight = 10
	imgWidth  = 9
	faceData  = []float32{
		0, 1, 1, 0, 0, 0, 1, 1, 0,
		0, 1, 1, 0, 0, 0, 1, 1, 0,
		0, 1, 1, 0, 0, 0, 1, 1, 0,
		0, 1, 1, 0, 0, 0, 1, 1, 0,
		0, 0, 0, 0, 1, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 0, 0, 0, 0,
		0, 0, 0, 1, 1, 1, 0, 0, 0,
		1, 1, 0, 0, 0, 0, 0, 1, 1,
		0, 1, 1, 1, 0, 1, 1, 1, 0,
		0, 0, 0, 1, 1, 1, 0, 0, 0,
	}

	numSamples = flag.Int("samples", 64, "number of synthetic smiley faces")
	numEpoches = flag.Int("epoch", 20, "number of epoches")
	batchSize  = flag.Int("batchsize", 8, "batch size")
	nHidden    = flag.Int("n_hidden", 16, "size of latent space")
	ch         = flag.Int("ch", 32, "number of channels of the widest feature map")
	out        = flag.String("out", "", "output directory (temporary one if empty)")
)

// genSyntheticData Smiley faces placed with random offset and random brightness
func genSyntheticData(rnd *rand.Rand, numSamples int) []image.Image {
	images := make([]image.Image, numSamples)
	for i := range images {
		img := image.NewGray(image.Rect(0, 0, imgWidth+2, imgHeight+2))
		dx, dy := rnd.Intn(3), rnd.Intn(3)
		brightness := 0.7 + 0.3*rnd.Float64()
		for y := 0; y < imgHeight; y++ {
			for x := 0; x < imgWidth; x++ {
				img.SetGray(x+dx, y+dy, color.Gray{Y: uint8(float64(faceData[y*imgWidth+x]) * brightness * 255)})
			}
		}
		images[i] = img
	}
	return images
}

func main() {
	flag.Parse()
	logger := logrus.New()

	// Initialize seed with constant value to reproduce results
	rnd := rand.New(rand.NewSource(1337))

	fmt.Println("Actual smiley face:")
	fmt.Print(dcgan.ASCII(faceData, imgHeight, imgWidth))

	conf := dcgan.DefaultConfig()
	conf.BatchSize = *batchSize
	conf.Epoch = *numEpoches
	conf.NHidden = *nHidden
	conf.Ch = *ch
	conf.DisplayInterval = 10
	conf.SnapshotInterval = 0
	conf.PreviewRows = 4
	conf.PreviewCols = 4
	conf.Out = *out
	if conf.Out == "" {
		dir, err := ioutil.TempDir("", "smiley")
		if err != nil {
			logger.Fatalln(err)
		}
		defer os.RemoveAll(dir)
		conf.Out = dir
	}

	side := conf.GeneratorConfig().OutputSize()
	trainSet, err := dcgan.NewTrainSetFromImages(genSyntheticData(rnd, *numSamples), side, side)
	if err != nil {
		logger.Fatalln(err)
	}
	sample, err := trainSet.Sample(0)
	if err != nil {
		logger.Fatalln(err)
	}
	fmt.Printf("Training sample (%dx%d):\n", side, side)
	fmt.Print(dcgan.ASCII(sample.Materialize().Data().([]float32), side, side))

	trainer, err := dcgan.NewTrainer(conf, trainSet, logger)
	if err != nil {
		logger.Fatalln(err)
	}
	defer trainer.Close()
	if err := trainer.Run(context.Background()); err != nil {
		logger.Fatalln(err)
	}

	// Final test of Generator
	fmt.Println("Start testing generator after final epoch")
	sampler, err := dcgan.NewSampler(trainer.Updater.Generator, 1, dcgan.ModeInference)
	if err != nil {
		logger.Fatalln(err)
	}
	defer sampler.Close()
	generated, err := sampler.Generate(trainer.Updater.Generator.MakeHidden(rnd, 1))
	if err != nil {
		logger.Fatalln(err)
	}
	fmt.Print(dcgan.ASCII(generated.Data().([]float32), side, side))

	scorer, err := dcgan.NewScorer(trainer.Updater.Discriminator, 1, dcgan.ModeInference)
	if err != nil {
		logger.Fatalln(err)
	}
	defer scorer.Close()
	score, err := scorer.Score(generated)
	if err != nil {
		logger.Fatalln(err)
	}
	fmt.Println("Discriminator's logit for generated face:", score.Data())
}
