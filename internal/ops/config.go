package ops

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DecayOrder selects when weight decay is applied relative to the Adam step.
type DecayOrder string

// Decay orders.
const (
	// DecayBeforeStep scales the weight by (1 - decay) and then applies the step.
	DecayBeforeStep DecayOrder = "before"
	// DecayAfterStep applies the step and then scales by (1 - decay).
	DecayAfterStep DecayOrder = "after"
)

// Default numeric conventions.
const (
	DefaultBeta1     = 0.9
	DefaultBeta2     = 0.999
	DefaultEpsilon   = 1e-8
	DefaultMaxWeight = 1.98
)

// Config holds the numeric conventions shared by every dispatch of a Handle.
type Config struct {
	Beta1   float32 `yaml:"beta1"`   // first-moment decay (default: 0.9)
	Beta2   float32 `yaml:"beta2"`   // second-moment decay (default: 0.999)
	Epsilon float32 `yaml:"epsilon"` // Adam denominator term (default: 1e-8)

	// MaxWeight clips updated weights to [-MaxWeight, MaxWeight].
	// Zero selects DefaultMaxWeight, a negative value disables clipping.
	MaxWeight float32 `yaml:"max_weight"`

	DecayOrder DecayOrder `yaml:"decay_order"` // default: DecayBeforeStep

	// ScaleLossByPower multiplies the sigmoid MPE gradient by the power.
	ScaleLossByPower bool `yaml:"scale_loss_by_power"`

	// Debug checks every slice length against the declared sizes and panics
	// on mismatch.
	Debug bool `yaml:"debug"`

	// Logger receives handle and dispatch events (default: discarded).
	Logger *slog.Logger `yaml:"-"`
}

// LoadConfig reads a YAML config file. Missing fields keep their zero value
// and are defaulted by New.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("ops: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("ops: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// withDefaults fills zero fields and validates the rest.
func (c Config) withDefaults() (Config, error) {
	if c.Beta1 == 0 {
		c.Beta1 = DefaultBeta1
	}
	if c.Beta2 == 0 {
		c.Beta2 = DefaultBeta2
	}
	if c.Epsilon == 0 {
		c.Epsilon = DefaultEpsilon
	}
	if c.MaxWeight == 0 {
		c.MaxWeight = DefaultMaxWeight
	}
	if c.DecayOrder == "" {
		c.DecayOrder = DecayBeforeStep
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	switch c.DecayOrder {
	case DecayBeforeStep, DecayAfterStep:
	default:
		return c, fmt.Errorf("ops: unknown decay order %q", c.DecayOrder)
	}
	if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
		return c, fmt.Errorf("ops: betas must be in [0, 1), got %v and %v", c.Beta1, c.Beta2)
	}
	if c.Epsilon < 0 {
		return c, fmt.Errorf("ops: negative epsilon %v", c.Epsilon)
	}
	return c, nil
}
