package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	dcgan "github.com/LdDl/dcgan-go"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

var (
	outputFolder   = "./output"
	batchSize      = 16
	numSamples     = 256
	numEpoches     = 30
	numTestSamples = 16
)

// generateY Sine with provided phase and amplitude, x is in [0;2*pi]
func generateY(x, phase, amplitude float64) float64 {
	return amplitude * math.Sin(x+phase)
}

// drawCurve Rasterizes single period of sine into side x side image: white curve on black background
func drawCurve(rnd *rand.Rand, side int) []float32 {
	phase := 2 * math.Pi * rnd.Float64()
	amplitude := 0.5 + 0.5*rnd.Float64()
	data := make([]float32, side*side)
	// oversample X so the curve has no gaps on steep parts
	steps := side * 8
	for i := 0; i < steps; i++ {
		x := 2 * math.Pi * float64(i) / float64(steps)
		y := generateY(x, phase, amplitude)
		col := i * side / steps
		row := int(math.Round((1 - y) / 2 * float64(side-1)))
		data[row*side+col] = 1
	}
	return data
}

func main() {
	logger := logrus.New()
	// Initialize seed with constant value to reproduce results
	rnd := rand.New(rand.NewSource(1337))

	conf := dcgan.DefaultConfig()
	conf.BatchSize = batchSize
	conf.Epoch = numEpoches
	conf.NHidden = 16
	conf.Ch = 64
	conf.DisplayInterval = 16
	conf.SnapshotInterval = 0
	conf.PreviewRows = 4
	conf.PreviewCols = 4
	conf.Out = outputFolder

	// Prepare synthetic data
	side := conf.GeneratorConfig().OutputSize()
	curves := make([][]float32, numSamples)
	for i := range curves {
		curves[i] = drawCurve(rnd, side)
	}
	trainSet, err := dcgan.NewTrainSet(curves, side, side)
	if err != nil {
		logger.Fatalln(err)
	}
	if err := os.MkdirAll(outputFolder, 0755); err != nil {
		logger.Fatalln(err)
	}

	// Draw reference curves
	grid := dcgan.Grid{Rows: 4, Cols: 4, Scale: 4, Padding: 2}
	indices := make([]int, numTestSamples)
	for i := range indices {
		indices[i] = i
	}
	reference, err := trainSet.Batch(indices)
	if err != nil {
		logger.Fatalln(err)
	}
	if err := savePreview(grid, reference, "Reference curves", filepath.Join(outputFolder, "reference_curves.png")); err != nil {
		logger.Fatalln(err)
	}

	trainer, err := dcgan.NewTrainer(conf, trainSet, logger)
	if err != nil {
		logger.Fatalln(err)
	}
	defer trainer.Close()
	if err := trainer.Run(context.Background()); err != nil {
		logger.Fatalln(err)
	}

	// Draw generated curves
	gen := trainer.Updater.Generator
	sampler, err := dcgan.NewSampler(gen, numTestSamples, dcgan.ModeInference)
	if err != nil {
		logger.Fatalln(err)
	}
	defer sampler.Close()
	generated, err := sampler.Generate(gen.MakeHidden(rnd, numTestSamples))
	if err != nil {
		logger.Fatalln(err)
	}
	if err := savePreview(grid, generated, fmt.Sprintf("Generated curves after %d epoches", numEpoches), filepath.Join(outputFolder, "generated_curves.png")); err != nil {
		logger.Fatalln(err)
	}
	logger.Infof("Charts are saved into '%s'", outputFolder)
}

func savePreview(grid dcgan.Grid, batch *tensor.Dense, caption, fname string) error {
	img, err := grid.Render(batch, caption)
	if err != nil {
		return err
	}
	return dcgan.SavePNG(fname, img)
}
