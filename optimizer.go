package dcgan_go

import (
	"fmt"
	"math"
	"sort"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/vecf32"
)

// AdamConfig Hyper-parameters of Adam
//
// Alpha - step size
// Beta1, Beta2 - exponential decay rates of moments
// Eps - added to denominator
// WeightDecay - rate of decoupled weight decay: w -= WeightDecay*w at every step
//
type AdamConfig struct {
	Alpha       float64 `toml:"alpha"`
	Beta1       float64 `toml:"beta1"`
	Beta2       float64 `toml:"beta2"`
	Eps         float64 `toml:"eps"`
	WeightDecay float64 `toml:"weight_decay"`
}

// DefaultAdamConfig Returns hyper-parameters commonly used for DCGAN
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		Alpha:       0.0002,
		Beta1:       0.5,
		Beta2:       0.999,
		Eps:         1e-8,
		WeightDecay: 0.0001,
	}
}

// Validate Checks hyper-parameters
func (conf AdamConfig) Validate() error {
	if conf.Alpha < 0 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("alpha must be non-negative, but got %v", conf.Alpha))
	}
	if conf.Beta1 < 0 || conf.Beta1 >= 1 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("beta1 must be in [0;1), but got %v", conf.Beta1))
	}
	if conf.Beta2 < 0 || conf.Beta2 >= 1 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("beta2 must be in [0;1), but got %v", conf.Beta2))
	}
	if conf.Eps <= 0 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("eps must be positive, but got %v", conf.Eps))
	}
	if conf.WeightDecay < 0 || conf.WeightDecay >= 1 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("weight_decay must be in [0;1), but got %v", conf.WeightDecay))
	}
	return nil
}

// Adam Adaptive moment estimation with decoupled weight decay.
//
// Moments are kept per parameter name, so the same optimizer could step nodes of different graphs
// (as long as they are bound to the same parameters) and its state could be exported.
//
type Adam struct {
	Config AdamConfig

	t      int
	first  map[string][]float32
	second map[string][]float32
}

var _ gorgonia.Solver = &Adam{}

// AdamState Serializable state of Adam
type AdamState struct {
	Config AdamConfig
	T      int
	First  []ParamRecord
	Second []ParamRecord
}

// NewAdam Constructor for Adam
func NewAdam(conf AdamConfig) (*Adam, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "[Adam]")
	}
	return &Adam{
		Config: conf,
		first:  make(map[string][]float32),
		second: make(map[string][]float32),
	}, nil
}

// T Returns number of performed steps
func (opt *Adam) T() int {
	return opt.t
}

// LearningRate Returns bias-corrected step size for step t
func (opt *Adam) LearningRate(t int) float64 {
	if t < 1 {
		return 0
	}
	fix1 := 1 - math.Pow(opt.Config.Beta1, float64(t))
	fix2 := 1 - math.Pow(opt.Config.Beta2, float64(t))
	return opt.Config.Alpha * math.Sqrt(fix2) / fix1
}

type namer interface {
	Name() string
}

// Step Updates values of provided nodes in place using their gradients. Gradients are zeroed afterwards
func (opt *Adam) Step(model []gorgonia.ValueGrad) error {
	// Gather everything first: nothing is mutated when any of gradients is broken
	type entry struct {
		name string
		w    []float32
		g    []float32
	}
	entries := make([]entry, 0, len(model))
	for i, n := range model {
		nn, ok := n.(namer)
		if !ok {
			return fmt.Errorf("[Adam] Value #%d has no name", i)
		}
		grad, err := n.Grad()
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("[Adam] Can't get gradient of '%s'", nn.Name()))
		}
		w, ok := n.Value().Data().([]float32)
		if !ok {
			return fmt.Errorf("[Adam] Value of '%s' has type %T, but []float32 is expected", nn.Name(), n.Value().Data())
		}
		g, ok := grad.Data().([]float32)
		if !ok {
			return fmt.Errorf("[Adam] Gradient of '%s' has type %T, but []float32 is expected", nn.Name(), grad.Data())
		}
		if len(w) != len(g) {
			return fmt.Errorf("[Adam] Gradient of '%s' has %d values, but %d expected", nn.Name(), len(g), len(w))
		}
		if m, ok := opt.first[nn.Name()]; ok && len(m) != len(w) {
			return fmt.Errorf("[Adam] State of '%s' has %d values, but %d expected", nn.Name(), len(m), len(w))
		}
		entries = append(entries, entry{name: nn.Name(), w: w, g: g})
	}

	opt.t++
	lr := float32(opt.LearningRate(opt.t))
	beta1 := float32(opt.Config.Beta1)
	beta2 := float32(opt.Config.Beta2)
	eps := float32(opt.Config.Eps)
	decay := float32(opt.Config.WeightDecay)

	for _, e := range entries {
		m, ok := opt.first[e.name]
		if !ok {
			m = make([]float32, len(e.w))
			opt.first[e.name] = m
		}
		v, ok := opt.second[e.name]
		if !ok {
			v = make([]float32, len(e.w))
			opt.second[e.name] = v
		}
		for i, g := range e.g {
			m[i] += (1 - beta1) * (g - m[i])
			v[i] += (1 - beta2) * (g*g - v[i])
		}
		if decay > 0 {
			// w *= (1-decay)
			vecf32.Scale(e.w, 1-decay)
		}
		for i := range e.w {
			e.w[i] -= lr * m[i] / (math32.Sqrt(v[i]) + eps)
		}
		// tape machine accumulates into bound gradients
		zero(e.g)
	}
	return nil
}

func zero(data []float32) {
	for i := range data {
		data[i] = 0
	}
}

// State Exports optimizer state
func (opt *Adam) State() AdamState {
	return AdamState{
		Config: opt.Config,
		T:      opt.t,
		First:  momentRecords(opt.first),
		Second: momentRecords(opt.second),
	}
}

// Restore Replaces optimizer state by exported one
func (opt *Adam) Restore(state AdamState) error {
	if err := state.Config.Validate(); err != nil {
		return errors.Wrap(err, "[Adam] Can't restore state")
	}
	if state.T < 0 {
		return fmt.Errorf("[Adam] Step counter must be non-negative, but got %d", state.T)
	}
	if len(state.First) != len(state.Second) {
		return fmt.Errorf("[Adam] Got %d first moments, but %d second ones", len(state.First), len(state.Second))
	}
	first := make(map[string][]float32, len(state.First))
	second := make(map[string][]float32, len(state.Second))
	for _, r := range state.First {
		first[r.Name] = append([]float32(nil), r.Data...)
	}
	for _, r := range state.Second {
		m, ok := first[r.Name]
		if !ok {
			return fmt.Errorf("[Adam] Second moment of '%s' has no first moment", r.Name)
		}
		if len(m) != len(r.Data) {
			return fmt.Errorf("[Adam] Moments of '%s' have different sizes: %d and %d", r.Name, len(m), len(r.Data))
		}
		second[r.Name] = append([]float32(nil), r.Data...)
	}
	opt.Config = state.Config
	opt.t = state.T
	opt.first = first
	opt.second = second
	return nil
}

// momentRecords Moments ordered by name, so exported state doesn't depend on map ordering
func momentRecords(moments map[string][]float32) []ParamRecord {
	names := make([]string, 0, len(moments))
	for name := range moments {
		names = append(names, name)
	}
	sort.Strings(names)
	records := make([]ParamRecord, 0, len(names))
	for _, name := range names {
		data := moments[name]
		records = append(records, ParamRecord{
			Name:  name,
			Shape: []int{len(data)},
			Data:  append([]float32(nil), data...),
		})
	}
	return records
}
