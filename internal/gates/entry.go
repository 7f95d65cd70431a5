package gates

import (
	"errors"
	"fmt"
	"math"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// ErrInvalidConfig is returned for gate settings that cannot be enforced
var ErrInvalidConfig = errors.New("invalid gate configuration")

// Gate names reported in EntryGateResult
const (
	GateCompositeScore = "composite_score"
	GateNotExtended    = "not_overextended"
	GateVolumeGrowth   = "volume_growth"
	GateWashClean      = "wash_clean"
	GateLiquidity      = "liquidity"
)

// EntryGateConfig contains hard thresholds for eligibility
type EntryGateConfig struct {
	MinCompositeScore  float64        `yaml:"min_composite_score"`   // ≥65
	MaxAbsChange24h    float64        `yaml:"max_abs_change_24h"`    // |24h| <30%, not already pumped
	MinVolumeChange24h float64        `yaml:"min_volume_change_24h"` // >30%, volume increasing
	MaxWashConfidence  float64        `yaml:"-"`                     // <40, set from the wash threshold
	Floors             CategoryFloors `yaml:"market_cap_floors"`
	TopN               int            `yaml:"top_n"` // 0 = unlimited
}

// DefaultEntryGateConfig returns production gate configuration
func DefaultEntryGateConfig() *EntryGateConfig {
	return &EntryGateConfig{
		MinCompositeScore:  65.0,
		MaxAbsChange24h:    30.0,
		MinVolumeChange24h: 30.0,
		MaxWashConfidence:  40.0,
		Floors:             DefaultCategoryFloors(),
		TopN:               10,
	}
}

// Validate checks the configuration is enforceable
func (c *EntryGateConfig) Validate() error {
	if c.MinCompositeScore < 0 || c.MinCompositeScore > 100 {
		return fmt.Errorf("%w: min score %.1f outside [0,100]", ErrInvalidConfig, c.MinCompositeScore)
	}
	if c.MaxAbsChange24h <= 0 {
		return fmt.Errorf("%w: max 24h change must be positive", ErrInvalidConfig)
	}
	if c.MaxWashConfidence <= 0 || c.MaxWashConfidence > 100 {
		return fmt.Errorf("%w: max wash confidence %.1f outside (0,100]", ErrInvalidConfig, c.MaxWashConfidence)
	}
	if c.TopN < 0 {
		return fmt.Errorf("%w: top n must be ≥0, got %d", ErrInvalidConfig, c.TopN)
	}
	if err := c.Floors.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Input is what the policy needs to judge one scored coin
type Input struct {
	Snapshot       market.CoinSnapshot
	Score          float64
	WashConfidence float64
}

// EntryGateResult contains the evaluation result and detailed reasoning
type EntryGateResult struct {
	Symbol         string                `json:"symbol"`
	Passed         bool                  `json:"passed"`
	CompositeScore float64               `json:"composite_score"`
	GateResults    map[string]*GateCheck `json:"gate_results"`
	FailureReasons []string              `json:"failure_reasons"`
	PassedGates    []string              `json:"passed_gates"`
}

// GateCheck represents the result of a single gate evaluation
type GateCheck struct {
	Name        string  `json:"name"`
	Passed      bool    `json:"passed"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	Description string  `json:"description"`
}

// Policy decides eligibility and ordering of scored candidates
type Policy struct {
	config *EntryGateConfig
}

// NewPolicy creates a policy; nil config uses defaults
func NewPolicy(config *EntryGateConfig) *Policy {
	if config == nil {
		config = DefaultEntryGateConfig()
	}
	return &Policy{config: config}
}

// Config returns the active thresholds
func (p *Policy) Config() EntryGateConfig {
	return *p.config
}

// Evaluate runs every gate; all must pass. Each gate is recorded even after a failure.
func (p *Policy) Evaluate(in Input, category market.Category) *EntryGateResult {
	s := in.Snapshot
	result := &EntryGateResult{
		Symbol:         s.Symbol,
		CompositeScore: in.Score,
		GateResults:    make(map[string]*GateCheck, 5),
		FailureReasons: []string{},
		PassedGates:    []string{},
	}

	floor := p.config.Floors.FloorFor(s, category)
	abs24h := math.Abs(s.PercentChange24h)

	checks := []struct {
		check  *GateCheck
		reason string
	}{
		{
			check: &GateCheck{
				Name:        GateCompositeScore,
				Passed:      in.Score >= p.config.MinCompositeScore,
				Value:       in.Score,
				Threshold:   p.config.MinCompositeScore,
				Description: fmt.Sprintf("Composite score %.1f ≥ %.1f", in.Score, p.config.MinCompositeScore),
			},
			reason: fmt.Sprintf("Score %.1f below threshold %.1f", in.Score, p.config.MinCompositeScore),
		},
		{
			check: &GateCheck{
				Name:        GateNotExtended,
				Passed:      abs24h < p.config.MaxAbsChange24h,
				Value:       abs24h,
				Threshold:   p.config.MaxAbsChange24h,
				Description: fmt.Sprintf("|24h| %.1f%% < %.1f%%", abs24h, p.config.MaxAbsChange24h),
			},
			reason: fmt.Sprintf("24h move %.1f%% already beyond %.0f%%", s.PercentChange24h, p.config.MaxAbsChange24h),
		},
		{
			check: &GateCheck{
				Name:        GateVolumeGrowth,
				Passed:      !s.Quality.MissingVolumeChange && s.VolumeChange24h > p.config.MinVolumeChange24h,
				Value:       s.VolumeChange24h,
				Threshold:   p.config.MinVolumeChange24h,
				Description: fmt.Sprintf("Volume change %.1f%% > %.1f%%", s.VolumeChange24h, p.config.MinVolumeChange24h),
			},
			reason: fmt.Sprintf("Volume change %.1f%% not above %.0f%%", s.VolumeChange24h, p.config.MinVolumeChange24h),
		},
		{
			check: &GateCheck{
				Name:        GateWashClean,
				Passed:      in.WashConfidence < p.config.MaxWashConfidence,
				Value:       in.WashConfidence,
				Threshold:   p.config.MaxWashConfidence,
				Description: fmt.Sprintf("Wash confidence %.0f < %.0f", in.WashConfidence, p.config.MaxWashConfidence),
			},
			reason: fmt.Sprintf("Wash confidence %.0f at or above %.0f", in.WashConfidence, p.config.MaxWashConfidence),
		},
		{
			check: &GateCheck{
				Name:        GateLiquidity,
				Passed:      s.MarketCap > floor,
				Value:       s.MarketCap,
				Threshold:   floor,
				Description: fmt.Sprintf("Market cap $%.1fM > $%.1fM", s.MarketCap/1e6, floor/1e6),
			},
			reason: fmt.Sprintf("Market cap $%.1fM not above $%.0fM floor", s.MarketCap/1e6, floor/1e6),
		},
	}

	result.Passed = true
	for _, c := range checks {
		result.GateResults[c.check.Name] = c.check
		if c.check.Passed {
			result.PassedGates = append(result.PassedGates, c.check.Name)
			continue
		}
		result.Passed = false
		result.FailureReasons = append(result.FailureReasons, c.reason)
	}

	return result
}

// Eligible is a shorthand for Evaluate(...).Passed
func (p *Policy) Eligible(in Input, category market.Category) bool {
	return p.Evaluate(in, category).Passed
}
