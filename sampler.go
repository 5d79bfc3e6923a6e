package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Sampler Generates images by Generator outside of training
type Sampler struct {
	generator *Generator
	batchSize int

	g     *gorgonia.ExprGraph
	input *gorgonia.Node
	net   *Network
	out   gorgonia.Value
	vm    gorgonia.VM
}

// NewSampler Defines Generator for batches of provided size.
//
// mode - ModeInference uses running statistics of batch normalization, ModeTraining uses statistics of the batch itself.
// Running statistics are never updated here
//
func NewSampler(gen *Generator, batchSize int, mode Mode) (*Sampler, error) {
	if batchSize < 1 {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("batch size must be positive, but got %d", batchSize))
	}
	s := &Sampler{
		generator: gen,
		batchSize: batchSize,
		g:         gorgonia.NewGraph(),
	}
	shp := gen.InputShape(batchSize)
	s.input = gorgonia.NewTensor(s.g, Float, 4, gorgonia.WithShape(shp...), gorgonia.WithName("latent"), gorgonia.WithValue(tensor.New(tensor.Of(Float), tensor.WithShape(shp...))))
	var err error
	if s.net, err = gen.Fwd(s.g, s.input, mode); err != nil {
		return nil, errors.Wrap(err, "[Sampler]")
	}
	gorgonia.Read(s.net.Out(), &s.out)
	s.vm = gorgonia.NewTapeMachine(s.g)
	return s, nil
}

// Generate Returns images of shape (batch, 1, H, W) for latent batch of shape (batch, NHidden, 1, 1).
// Current Generator's parameters are used.
func (s *Sampler) Generate(latent *tensor.Dense) (*tensor.Dense, error) {
	if !latent.Shape().Eq(s.input.Shape()) {
		return nil, fmt.Errorf("[Sampler] Latent batch must have shape %v, but got %v", s.input.Shape(), latent.Shape())
	}
	defer s.vm.Reset()
	if err := s.net.Push(s.generator.Params, s.generator.Stats); err != nil {
		return nil, errors.Wrap(err, "[Sampler]")
	}
	if err := copyValue(s.input.Value(), latent); err != nil {
		return nil, errors.Wrap(err, "[Sampler] Can't feed latent batch")
	}
	if err := s.vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "[Sampler] Can't run graph")
	}
	return cloneOut(s.out, s.generator.OutputShape(s.batchSize))
}

// Close Releases tape machine
func (s *Sampler) Close() error {
	return s.vm.Close()
}

// Scorer Evaluates Discriminator's logits outside of training
type Scorer struct {
	discriminator *Discriminator
	batchSize     int

	g     *gorgonia.ExprGraph
	input *gorgonia.Node
	net   *Network
	out   gorgonia.Value
	vm    gorgonia.VM
}

// NewScorer Defines Discriminator for batches of provided size
func NewScorer(dis *Discriminator, batchSize int, mode Mode) (*Scorer, error) {
	if batchSize < 1 {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("batch size must be positive, but got %d", batchSize))
	}
	s := &Scorer{
		discriminator: dis,
		batchSize:     batchSize,
		g:             gorgonia.NewGraph(),
	}
	shp := dis.InputShape(batchSize)
	s.input = gorgonia.NewTensor(s.g, Float, 4, gorgonia.WithShape(shp...), gorgonia.WithName("images"), gorgonia.WithValue(tensor.New(tensor.Of(Float), tensor.WithShape(shp...))))
	var err error
	if s.net, err = dis.Define(s.g, mode); err != nil {
		return nil, errors.Wrap(err, "[Scorer]")
	}
	out, err := dis.Fwd(s.net, s.input)
	if err != nil {
		return nil, errors.Wrap(err, "[Scorer]")
	}
	gorgonia.Read(out, &s.out)
	s.vm = gorgonia.NewTapeMachine(s.g)
	return s, nil
}

// Score Returns logits of shape (batch, 1) for images of shape (batch, 1, H, W)
func (s *Scorer) Score(images *tensor.Dense) (*tensor.Dense, error) {
	if !images.Shape().Eq(s.input.Shape()) {
		if images.Dims() == 4 && images.Shape()[1] != s.input.Shape()[1] {
			return nil, errors.Wrap(ErrChannelMismatch, fmt.Sprintf("[Scorer] Images have %d channels, but %d expected", images.Shape()[1], s.input.Shape()[1]))
		}
		return nil, fmt.Errorf("[Scorer] Images must have shape %v, but got %v", s.input.Shape(), images.Shape())
	}
	defer s.vm.Reset()
	if err := s.net.Push(s.discriminator.Params, s.discriminator.Stats); err != nil {
		return nil, errors.Wrap(err, "[Scorer]")
	}
	if err := copyValue(s.input.Value(), images); err != nil {
		return nil, errors.Wrap(err, "[Scorer] Can't feed images")
	}
	if err := s.vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "[Scorer] Can't run graph")
	}
	return cloneOut(s.out, tensor.Shape{s.batchSize, 1})
}

// Close Releases tape machine
func (s *Scorer) Close() error {
	return s.vm.Close()
}

func cloneOut(v gorgonia.Value, shape tensor.Shape) (*tensor.Dense, error) {
	if v == nil {
		return nil, fmt.Errorf("Output has not been evaluated")
	}
	data, ok := v.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("Output has type %T, but []float32 is expected", v.Data())
	}
	if len(data) != shape.TotalSize() {
		return nil, fmt.Errorf("Output has %d values, but %d expected for shape %v", len(data), shape.TotalSize(), shape)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(append([]float32(nil), data...))), nil
}
