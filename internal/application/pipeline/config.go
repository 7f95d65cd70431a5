package pipeline

import (
	"fmt"

	"github.com/sawpanic/cadvi/internal/domain/indicators"
	"github.com/sawpanic/cadvi/internal/domain/wash"
	"github.com/sawpanic/cadvi/internal/exits"
	"github.com/sawpanic/cadvi/internal/gates"
	"github.com/sawpanic/cadvi/internal/regime"
	"github.com/sawpanic/cadvi/internal/scoring"
	"github.com/sawpanic/cadvi/internal/sizing"
)

// Config gathers the per-component settings of a scan
type Config struct {
	Workers     int                       `yaml:"workers"` // per-coin scoring parallelism
	Indicators  *indicators.Config        `yaml:"indicators"`
	Wash        *wash.Config              `yaml:"wash"`
	Regime      *regime.DetectorConfig    `yaml:"regime"`
	Correlation *regime.CorrelationConfig `yaml:"correlation"`
	Scoring     *scoring.Config           `yaml:"scoring"`
	Gates       *gates.EntryGateConfig    `yaml:"gates"`
	Exits       *exits.ExitConfig         `yaml:"exits"`
	Sizing      *sizing.Config            `yaml:"sizing"`
}

// DefaultConfig returns the production defaults of every component
func DefaultConfig() *Config {
	return &Config{
		Workers:     8,
		Indicators:  indicators.DefaultConfig(),
		Wash:        wash.DefaultConfig(),
		Regime:      regime.DefaultDetectorConfig(),
		Correlation: regime.DefaultCorrelationConfig(),
		Scoring:     scoring.DefaultConfig(),
		Gates:       gates.DefaultEntryGateConfig(),
		Exits:       exits.DefaultExitConfig(),
		Sizing:      sizing.DefaultConfig(),
	}
}

// fillDefaults replaces nil sections so partial YAML documents stay usable
func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Indicators == nil {
		c.Indicators = d.Indicators
	}
	if c.Wash == nil {
		c.Wash = d.Wash
	}
	if c.Regime == nil {
		c.Regime = d.Regime
	}
	if c.Correlation == nil {
		c.Correlation = d.Correlation
	}
	if c.Scoring == nil {
		c.Scoring = d.Scoring
	}
	if c.Gates == nil {
		c.Gates = d.Gates
	}
	if c.Exits == nil {
		c.Exits = d.Exits
	}
	if c.Sizing == nil {
		c.Sizing = d.Sizing
	}
}

// Validate checks every component section. The wash threshold is the one
// knob for both the suspicious flag and the eligibility gate.
func (c *Config) Validate() error {
	c.fillDefaults()

	if c.Wash.Threshold <= 0 || c.Wash.Threshold > 100 {
		return fmt.Errorf("wash: threshold %.1f outside (0,100]", c.Wash.Threshold)
	}
	g := *c.Gates
	g.MaxWashConfidence = c.Wash.Threshold
	c.Gates = &g

	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Gates.Validate(); err != nil {
		return fmt.Errorf("gates: %w", err)
	}
	if err := c.Exits.Validate(); err != nil {
		return fmt.Errorf("exits: %w", err)
	}
	if err := c.Sizing.Validate(); err != nil {
		return fmt.Errorf("sizing: %w", err)
	}
	if c.Regime.DownThreshold >= c.Regime.UpThreshold {
		return fmt.Errorf("regime: down threshold %.2f must be below up threshold %.2f",
			c.Regime.DownThreshold, c.Regime.UpThreshold)
	}
	return nil
}
