package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GAN Generator stacked with the copy of Discriminator.
//
// generatorPart - Generator defined in training mode
// discriminatorPart - mirror of Discriminator: its values are copied from Discriminator's parameters before every run
// and its learnables are ignored during the training process
//
type GAN struct {
	generator     *Generator
	discriminator *Discriminator
	batchSize     int

	g                 *gorgonia.ExprGraph
	latent            *gorgonia.Node
	generatorPart     *Network
	discriminatorPart *Network
	out               *gorgonia.Node
	loss              *gorgonia.Node

	fakeVal gorgonia.Value
	lossVal gorgonia.Value
	vm      gorgonia.VM
}

// NewGAN Defines generator's training graph: latent => Generator => Discriminator (mirror) => generator loss
func NewGAN(gen *Generator, dis *Discriminator, batchSize int) (*GAN, error) {
	if batchSize < 1 {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("batch size must be positive, but got %d", batchSize))
	}
	if err := checkCompatible(gen, dis); err != nil {
		return nil, err
	}
	net := &GAN{
		generator:     gen,
		discriminator: dis,
		batchSize:     batchSize,
		g:             gorgonia.NewGraph(),
	}
	net.latent = gorgonia.NewTensor(net.g, Float, 4, gorgonia.WithShape(gen.InputShape(batchSize)...), gorgonia.WithName("latent"), gorgonia.WithValue(tensor.New(tensor.Of(Float), tensor.WithShape(gen.InputShape(batchSize)...))))

	var err error
	if net.generatorPart, err = gen.Fwd(net.g, net.latent, ModeTraining); err != nil {
		return nil, errors.Wrap(err, "[GAN] Can't define generator part")
	}
	gorgonia.Read(net.generatorPart.Out(), &net.fakeVal)

	if net.discriminatorPart, err = dis.Define(net.g, ModeTraining); err != nil {
		return nil, errors.Wrap(err, "[GAN] Can't define discriminator part")
	}
	if net.out, err = dis.Fwd(net.discriminatorPart, net.generatorPart.Out()); err != nil {
		return nil, errors.Wrap(err, "[GAN] Can't feedforward generated images through discriminator part")
	}
	if net.loss, err = GeneratorLoss(net.out); err != nil {
		return nil, errors.Wrap(err, "[GAN]")
	}
	gorgonia.Read(net.loss, &net.lossVal)

	learnables := net.generatorPart.Learnables()
	if _, err = gorgonia.Grad(net.loss, learnables...); err != nil {
		return nil, errors.Wrap(err, "[GAN] Can't evaluate gradients")
	}
	net.vm = gorgonia.NewTapeMachine(net.g, gorgonia.BindDualValues(learnables...))
	return net, nil
}

// Out Returns reference to output node (discriminator's logits of generated images)
func (net *GAN) Out() *gorgonia.Node {
	return net.out
}

// GeneratorOut Returns reference to output node of generator part
func (net *GAN) GeneratorOut() *gorgonia.Node {
	return net.generatorPart.Out()
}

// GeneratorLearnables Returns learnables nodes of generator part. These are the only nodes which have gradients
func (net *GAN) GeneratorLearnables() gorgonia.Nodes {
	return net.generatorPart.Learnables()
}

// Run Copies current discriminator's parameters into mirror and evaluates graph for provided latent batch
func (net *GAN) Run(latent *tensor.Dense) error {
	if !latent.Shape().Eq(net.latent.Shape()) {
		return fmt.Errorf("[GAN] Latent batch must have shape %v, but got %v", net.latent.Shape(), latent.Shape())
	}
	if err := copyValue(net.latent.Value(), latent); err != nil {
		return errors.Wrap(err, "[GAN] Can't feed latent batch")
	}
	if err := net.discriminatorPart.Push(net.discriminator.Params, nil); err != nil {
		return errors.Wrap(err, "[GAN] Can't sync discriminator part")
	}
	if err := net.vm.RunAll(); err != nil {
		return errors.Wrap(err, "[GAN] Can't run graph")
	}
	return nil
}

// Loss Returns generator loss evaluated by the last Run
func (net *GAN) Loss() (float32, error) {
	return scalarValue(net.lossVal)
}

// Fake Returns copy of generated batch evaluated by the last Run
func (net *GAN) Fake() (*tensor.Dense, error) {
	if net.fakeVal == nil {
		return nil, fmt.Errorf("[GAN] Generated batch has not been evaluated yet")
	}
	data, ok := net.fakeVal.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("[GAN] Generated batch has type %T, but []float32 is expected", net.fakeVal.Data())
	}
	backing := append([]float32(nil), data...)
	return tensor.New(tensor.WithShape(net.generator.OutputShape(net.batchSize)...), tensor.WithBacking(backing)), nil
}

// Apply Steps generator's learnables with provided solver and folds batch statistics into running ones
func (net *GAN) Apply(solver gorgonia.Solver) error {
	if err := net.generatorPart.UpdateRunningStats(net.generator.Stats); err != nil {
		return errors.Wrap(err, "[GAN]")
	}
	if err := solver.Step(gorgonia.NodesToValueGrads(net.generatorPart.Learnables())); err != nil {
		return errors.Wrap(err, "[GAN] Can't step generator")
	}
	if err := net.generatorPart.Pull(net.generator.Params); err != nil {
		return errors.Wrap(err, "[GAN]")
	}
	return nil
}

// Sync Copies generator's parameters into graph (after restoring them from snapshot)
func (net *GAN) Sync() error {
	return net.generatorPart.Push(net.generator.Params, nil)
}

// Reset Prepares tape machine for the next run
func (net *GAN) Reset() {
	net.vm.Reset()
}

// Close Releases tape machine
func (net *GAN) Close() error {
	return net.vm.Close()
}

// discriminatorGraph Discriminator's training graph: Discriminator is fed by real batch and generated batch.
// Generated batch is a plain input here, so no gradient reaches Generator.
type discriminatorGraph struct {
	discriminator *Discriminator

	g    *gorgonia.ExprGraph
	real *gorgonia.Node
	fake *gorgonia.Node
	net  *Network
	loss *gorgonia.Node

	lossVal gorgonia.Value
	vm      gorgonia.VM
}

func newDiscriminatorGraph(dis *Discriminator, batchSize int) (*discriminatorGraph, error) {
	dg := &discriminatorGraph{
		discriminator: dis,
		g:             gorgonia.NewGraph(),
	}
	shp := dis.InputShape(batchSize)
	// different names: otherwise both inputs would be merged into single node
	dg.real = gorgonia.NewTensor(dg.g, Float, 4, gorgonia.WithShape(shp...), gorgonia.WithName("real"), gorgonia.WithValue(tensor.New(tensor.Of(Float), tensor.WithShape(shp...))))
	dg.fake = gorgonia.NewTensor(dg.g, Float, 4, gorgonia.WithShape(shp...), gorgonia.WithName("fake"), gorgonia.WithValue(tensor.New(tensor.Of(Float), tensor.WithShape(shp...))))

	var err error
	if dg.net, err = dis.Define(dg.g, ModeTraining); err != nil {
		return nil, errors.Wrap(err, "Can't define discriminator")
	}
	realOut, err := dis.Fwd(dg.net, dg.real)
	if err != nil {
		return nil, errors.Wrap(err, "Can't feedforward real batch")
	}
	fakeOut, err := dis.Fwd(dg.net, dg.fake)
	if err != nil {
		return nil, errors.Wrap(err, "Can't feedforward generated batch")
	}
	if dg.loss, err = DiscriminatorLoss(realOut, fakeOut); err != nil {
		return nil, err
	}
	gorgonia.Read(dg.loss, &dg.lossVal)

	learnables := dg.net.Learnables()
	if _, err = gorgonia.Grad(dg.loss, learnables...); err != nil {
		return nil, errors.Wrap(err, "Can't evaluate gradients")
	}
	dg.vm = gorgonia.NewTapeMachine(dg.g, gorgonia.BindDualValues(learnables...))
	return dg, nil
}

func (dg *discriminatorGraph) run(real, fake *tensor.Dense) error {
	if err := copyValue(dg.real.Value(), real); err != nil {
		return errors.Wrap(err, "Can't feed real batch")
	}
	if err := copyValue(dg.fake.Value(), fake); err != nil {
		return errors.Wrap(err, "Can't feed generated batch")
	}
	return dg.vm.RunAll()
}

func (dg *discriminatorGraph) apply(solver gorgonia.Solver) error {
	if err := dg.net.UpdateRunningStats(dg.discriminator.Stats); err != nil {
		return err
	}
	if err := solver.Step(gorgonia.NodesToValueGrads(dg.net.Learnables())); err != nil {
		return errors.Wrap(err, "Can't step discriminator")
	}
	return dg.net.Pull(dg.discriminator.Params)
}

// checkCompatible Generator's output must be accepted by Discriminator
func checkCompatible(gen *Generator, dis *Discriminator) error {
	out := gen.OutputShape(1)
	in := dis.InputShape(1)
	if out[1] != in[1] {
		return errors.Wrap(ErrChannelMismatch, fmt.Sprintf("Generator produces %d channels, but Discriminator expects %d", out[1], in[1]))
	}
	if out[2] != in[2] || out[3] != in[3] {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("Generator produces %dx%d images, but Discriminator expects %dx%d", out[2], out[3], in[2], in[3]))
	}
	return nil
}
