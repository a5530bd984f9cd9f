// Package config loads the control file that drives a light-curve fit.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/banshee-data/transitfit/internal/monitoring"
	"github.com/banshee-data/transitfit/internal/units"
)

// EnvPrefix prefixes environment overrides, e.g. LCFIT_NUM_PLANETS.
const EnvPrefix = "LCFIT"

// Model names accepted in FitConfig.Models.
const (
	ModelTransit    = "transit"
	ModelEclipse    = "eclipse"
	ModelPhaseCurve = "sinusoid_pc"
	ModelPolynomial = "polynomial"
	ModelDampedOsc  = "damped_osc"
	ModelGP         = "gp"
)

// Methods recorded with stored runs. The fit and scan subcommands choose
// the method; the control file does not.
const (
	MethodLSQ  = "lsq"
	MethodScan = "scan"
)

var validate = validator.New()

// FitConfig is the control file for one fit. Optional pointer fields fall
// back to their Get* defaults when omitted.
type FitConfig struct {
	EventLabel string `mapstructure:"event_label" default:"transitfit"`

	// Channels restricts the fit to these channels; empty fits every
	// channel in the light-curve file.
	Channels   []int  `mapstructure:"channels" validate:"dive,gte=0"`
	MultiWhite bool   `mapstructure:"multiwhite"`
	TimeUnits  string `mapstructure:"time_units" default:"BMJD_TDB"`
	NumPlanets int    `mapstructure:"num_planets" default:"1" validate:"gte=1"`

	Models []string `mapstructure:"models" validate:"required,min=1,dive,oneof=transit eclipse sinusoid_pc polynomial damped_osc gp"`

	// Limb darkening
	LDFile          string `mapstructure:"ld_file"`
	RecenterLDPrior bool   `mapstructure:"recenter_ld_prior"`

	// Eclipse and phase curve
	ComputeLTT      *bool `mapstructure:"compute_ltt"`
	ForcePositivity bool  `mapstructure:"force_positivity"`

	// GP
	KernelClasses         []string `mapstructure:"kernel_class" default:"[\"Matern32\"]"`
	KernelInputs          []string `mapstructure:"kernel_inputs" default:"[\"time\"]"`
	GPBackend             string   `mapstructure:"gp_backend" default:"dense"`
	NormalizeKernelInputs bool     `mapstructure:"normalize_kernel_inputs"`

	// Fitting
	MaxIterations *int `mapstructure:"max_iterations" validate:"omitempty,gte=1"`
	ScanWorkers   *int `mapstructure:"scan_workers" validate:"omitempty,gte=1"`

	Database string    `mapstructure:"database" default:"transitfit.db"`
	Log      LogConfig `mapstructure:"log"`
}

// LogConfig mirrors monitoring.Config.
type LogConfig struct {
	Level  string `mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" default:"console" validate:"oneof=console json"`
	Output string `mapstructure:"output" default:"stderr"`
}

// Monitoring returns the logger configuration.
func (l LogConfig) Monitoring() monitoring.Config {
	return monitoring.Config{Level: l.Level, Format: l.Format, Output: l.Output}
}

// NewViper returns a viper instance reading path (if set) with LCFIT_
// environment overrides. Callers may bind flags before passing it to
// FromViper.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads, defaults and validates the control file at path.
func Load(path string) (*FitConfig, error) {
	if path == "" {
		return nil, errors.New("config: no control file given")
	}
	return FromViper(NewViper(path))
}

// FromViper decodes v into a FitConfig. Fields v does not set keep their
// tag defaults.
func FromViper(v *viper.Viper) (*FitConfig, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg := &FitConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks struct tags and cross-field rules.
func (c *FitConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !units.IsValid(c.TimeUnits) {
		return fmt.Errorf("time_units %q is not one of %s", c.TimeUnits, units.GetValidUnitsString())
	}
	if c.HasModel(ModelPhaseCurve) && !c.HasModel(ModelEclipse) {
		return fmt.Errorf("model %s requires %s", ModelPhaseCurve, ModelEclipse)
	}
	seen := make(map[int]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if seen[ch] {
			return fmt.Errorf("channel %d listed twice", ch)
		}
		seen[ch] = true
	}
	return nil
}

// HasModel reports whether name is among the configured models.
func (c *FitConfig) HasModel(name string) bool {
	for _, m := range c.Models {
		if m == name {
			return true
		}
	}
	return false
}

// GetComputeLTT returns the compute_ltt value or the default.
func (c *FitConfig) GetComputeLTT() bool {
	if c.ComputeLTT == nil {
		return true
	}
	return *c.ComputeLTT
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *FitConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 5000
	}
	return *c.MaxIterations
}

// GetScanWorkers returns the scan_workers value or the default.
func (c *FitConfig) GetScanWorkers() int {
	if c.ScanWorkers == nil {
		return 4
	}
	return *c.ScanWorkers
}
