package main

import (
	"flag"
	"fmt"
	"math/rand"

	dcgan "github.com/LdDl/dcgan-go"
	"github.com/sirupsen/logrus"
)

var (
	configFile = flag.String("config", "", "TOML file with settings used for training (defaults if empty)")
	genModel   = flag.String("gen", "", "generator's model snapshot (gen_epoch_N.gob)")
	disModel   = flag.String("dis", "", "discriminator's model snapshot (dis_epoch_N.gob), optional")
	output     = flag.String("out", "generated.png", "PNG file for generated images")
	rows       = flag.Int("rows", 10, "rows of preview grid")
	cols       = flag.Int("cols", 10, "columns of preview grid")
	seed       = flag.Int64("seed", 0, "random seed of z")
)

func main() {
	flag.Parse()
	logger := logrus.New()
	if *genModel == "" {
		logger.Fatalln("Generator's model must be provided (-gen)")
	}
	conf := dcgan.DefaultConfig()
	if *configFile != "" {
		var err error
		if conf, err = dcgan.LoadConfig(*configFile); err != nil {
			logger.Fatalln(err)
		}
	}

	// parameters are overwritten by snapshot, so the source doesn't matter
	rnd := rand.New(rand.NewSource(*seed))
	gen, err := dcgan.NewGenerator(conf.GeneratorConfig(), rnd)
	if err != nil {
		logger.Fatalln(err)
	}
	if err := dcgan.LoadModel(*genModel, gen.Params, gen.Stats); err != nil {
		logger.Fatalln(err)
	}
	batch := *rows * *cols
	sampler, err := dcgan.NewSampler(gen, batch, dcgan.ModeInference)
	if err != nil {
		logger.Fatalln(err)
	}
	defer sampler.Close()
	images, err := sampler.Generate(gen.MakeHidden(rnd, batch))
	if err != nil {
		logger.Fatalln(err)
	}
	grid := dcgan.Grid{Rows: *rows, Cols: *cols, Scale: 2, Padding: 2}
	img, err := grid.Render(images, fmt.Sprintf("seed %d", *seed))
	if err != nil {
		logger.Fatalln(err)
	}
	if err := dcgan.SavePNG(*output, img); err != nil {
		logger.Fatalln(err)
	}
	logger.WithField("file", *output).Info("Images have been generated")

	if *disModel == "" {
		return
	}
	shp := gen.OutputShape(batch)
	dis, err := dcgan.NewDiscriminator(conf.DiscriminatorConfig(shp[2], shp[3]), rnd)
	if err != nil {
		logger.Fatalln(err)
	}
	if err := dcgan.LoadModel(*disModel, dis.Params, dis.Stats); err != nil {
		logger.Fatalln(err)
	}
	scorer, err := dcgan.NewScorer(dis, batch, dcgan.ModeInference)
	if err != nil {
		logger.Fatalln(err)
	}
	defer scorer.Close()
	scores, err := scorer.Score(images)
	if err != nil {
		logger.Fatalln(err)
	}
	for i, s := range scores.Data().([]float32) {
		fmt.Printf("#%d: %v\n", i, s)
	}
}
