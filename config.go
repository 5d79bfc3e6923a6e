package dcgan_go

import (
	"fmt"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config Settings of training run
type Config struct {
	BatchSize        int    `toml:"batchsize"`
	Epoch            int    `toml:"epoch"`
	GPU              int    `toml:"gpu"`
	Out              string `toml:"out"`
	Resume           string `toml:"resume"`
	NHidden          int    `toml:"n_hidden"`
	Seed             int64  `toml:"seed"`
	TrainSeed        int64  `toml:"train_seed"`
	SnapshotInterval int    `toml:"snapshot_interval"`
	DisplayInterval  int    `toml:"display_interval"`
	Dataset          string `toml:"dataset"`

	Ch          int     `toml:"ch"`
	BottomWidth int     `toml:"bottom_width"`
	WScale      float64 `toml:"wscale"`
	Slope       float64 `toml:"slope"`

	Alpha       float64 `toml:"alpha"`
	Beta1       float64 `toml:"beta1"`
	WeightDecay float64 `toml:"weight_decay"`

	CheckFinite   bool `toml:"check_finite"`
	SkipNonFinite bool `toml:"skip_nonfinite"`

	PreviewRows int `toml:"preview_rows"`
	PreviewCols int `toml:"preview_cols"`
}

// DefaultConfig Returns default settings
func DefaultConfig() Config {
	adam := DefaultAdamConfig()
	return Config{
		BatchSize:        50,
		Epoch:            100,
		GPU:              -1,
		Out:              "result",
		NHidden:          128,
		Seed:             0,
		TrainSeed:        1,
		SnapshotInterval: 1000,
		DisplayInterval:  100,
		Ch:               512,
		BottomWidth:      3,
		WScale:           0.02,
		Slope:            0.2,
		Alpha:            adam.Alpha,
		Beta1:            adam.Beta1,
		WeightDecay:      adam.WeightDecay,
		CheckFinite:      true,
		SkipNonFinite:    false,
		PreviewRows:      10,
		PreviewCols:      10,
	}
}

// LoadConfig Reads TOML file on top of default settings. Unknown keys are treated as error
func LoadConfig(fname string) (Config, error) {
	conf := DefaultConfig()
	meta, err := toml.DecodeFile(fname, &conf)
	if err != nil {
		return conf, errors.Wrap(err, fmt.Sprintf("Can't decode config '%s'", fname))
	}
	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return conf, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("unknown keys in '%s': %s", fname, strings.Join(keys, ", ")))
	}
	if err := conf.Validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

// SaveConfig Writes settings as TOML file
func SaveConfig(fname string, conf Config) error {
	bytes, err := gotoml.Marshal(conf)
	if err != nil {
		return errors.Wrap(err, "Can't marshal config")
	}
	if err := ioutil.WriteFile(fname, bytes, 0644); err != nil {
		return errors.Wrap(err, "Can't write config")
	}
	return nil
}

// Validate Checks settings
func (conf Config) Validate() error {
	switch {
	case conf.BatchSize < 1:
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("batchsize must be positive, but got %d", conf.BatchSize))
	case conf.Epoch < 1:
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("epoch must be positive, but got %d", conf.Epoch))
	case conf.Out == "":
		return errors.Wrap(ErrInvalidConfig, "out must not be empty")
	case conf.SnapshotInterval < 0:
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("snapshot_interval must be non-negative, but got %d", conf.SnapshotInterval))
	case conf.DisplayInterval < 1:
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("display_interval must be positive, but got %d", conf.DisplayInterval))
	case conf.PreviewRows < 1 || conf.PreviewCols < 1:
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("preview grid must have one tile atleast, but got %dx%d", conf.PreviewRows, conf.PreviewCols))
	case conf.SkipNonFinite && !conf.CheckFinite:
		return errors.Wrap(ErrInvalidConfig, "skip_nonfinite requires check_finite")
	}
	if err := conf.GeneratorConfig().Validate(); err != nil {
		return err
	}
	if err := conf.AdamConfig().Validate(); err != nil {
		return err
	}
	if conf.Slope < 0 || conf.Slope >= 1 {
		return errors.Wrap(ErrInvalidConfig, fmt.Sprintf("slope must be in [0;1), but got %v", conf.Slope))
	}
	return nil
}

// GeneratorConfig Extracts Generator's hyper-parameters
func (conf Config) GeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		NHidden:     conf.NHidden,
		BottomWidth: conf.BottomWidth,
		Ch:          conf.Ch,
		WScale:      conf.WScale,
	}
}

// DiscriminatorConfig Extracts Discriminator's hyper-parameters for provided image resolution
func (conf Config) DiscriminatorConfig(height, width int) DiscriminatorConfig {
	disConf := DefaultDiscriminatorConfig(height, width)
	disConf.Ch = conf.Ch
	disConf.WScale = conf.WScale
	disConf.Slope = conf.Slope
	return disConf
}

// AdamConfig Extracts optimizer's hyper-parameters
func (conf Config) AdamConfig() AdamConfig {
	adam := DefaultAdamConfig()
	adam.Alpha = conf.Alpha
	adam.Beta1 = conf.Beta1
	adam.WeightDecay = conf.WeightDecay
	return adam
}
