package wash

import (
	"math"
	"sort"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// RuleID names a wash-trading heuristic that fired
type RuleID string

const (
	RuleExtremeVolumeFlatPrice RuleID = "extreme_volume_flat_price"
	RuleUnrealisticTurnover    RuleID = "unrealistic_turnover"
	RuleMicrocapTurnover       RuleID = "microcap_turnover"
	RuleVolumeWithoutMomentum  RuleID = "volume_without_momentum"
)

// Result is the wash-trading verdict for one snapshot
type Result struct {
	Confidence    float64  `json:"confidence"`
	Suspicious    bool     `json:"suspicious"`
	Rules         []RuleID `json:"rules"`
	LowConfidence bool     `json:"low_confidence"`
}

// Config holds rule thresholds and the weight each rule contributes
type Config struct {
	Threshold float64 `yaml:"threshold"` // suspicious at ≥40

	ExtremeVolumeChange float64 `yaml:"extreme_volume_change"` // >500% volume change
	FlatPriceChange     float64 `yaml:"flat_price_change"`     // |24h| <5%
	ExtremeVolumeWeight float64 `yaml:"extreme_volume_weight"`

	MaxTurnover    float64 `yaml:"max_turnover"` // volume/mcap >2.0
	TurnoverWeight float64 `yaml:"turnover_weight"`

	MicrocapCeiling  float64 `yaml:"microcap_ceiling"`  // <$10M
	MicrocapTurnover float64 `yaml:"microcap_turnover"` // volume/mcap >5
	MicrocapWeight   float64 `yaml:"microcap_weight"`

	SurgeVolumeChange float64 `yaml:"surge_volume_change"` // >200% volume change
	StallPriceChange  float64 `yaml:"stall_price_change"`  // |24h| <3%
	SurgeWeight       float64 `yaml:"surge_weight"`
}

// DefaultConfig returns the production wash heuristics
func DefaultConfig() *Config {
	return &Config{
		Threshold: 40,

		ExtremeVolumeChange: 500,
		FlatPriceChange:     5,
		ExtremeVolumeWeight: 40,

		MaxTurnover:    2.0,
		TurnoverWeight: 30,

		MicrocapCeiling:  10_000_000,
		MicrocapTurnover: 5,
		MicrocapWeight:   40,

		SurgeVolumeChange: 200,
		StallPriceChange:  3,
		SurgeWeight:       25,
	}
}

// Detector scores snapshots for signs of fabricated volume. It holds no state
// between calls, so the same snapshot always yields the same Result.
type Detector struct {
	config *Config
}

// NewDetector creates a detector; nil config uses defaults
func NewDetector(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Detector{config: config}
}

// Threshold is the confidence at which a snapshot is flagged
func (d *Detector) Threshold() float64 {
	return d.config.Threshold
}

// Detect applies the additive rules to a snapshot
func (d *Detector) Detect(s market.CoinSnapshot) Result {
	var (
		confidence float64
		fired      = make(map[RuleID]struct{}, 4)
		res        Result
	)

	add := func(rule RuleID, weight float64) {
		if _, ok := fired[rule]; ok {
			return
		}
		fired[rule] = struct{}{}
		confidence += weight
	}

	abs24h := math.Abs(s.PercentChange24h)

	if !s.Quality.MissingVolumeChange {
		if s.VolumeChange24h > d.config.ExtremeVolumeChange && abs24h < d.config.FlatPriceChange {
			add(RuleExtremeVolumeFlatPrice, d.config.ExtremeVolumeWeight)
		}
		if s.VolumeChange24h > d.config.SurgeVolumeChange && abs24h < d.config.StallPriceChange {
			add(RuleVolumeWithoutMomentum, d.config.SurgeWeight)
		}
	}

	// Ratio rules need a usable market cap
	if turnover, ok := s.Turnover(); ok {
		if turnover > d.config.MaxTurnover {
			add(RuleUnrealisticTurnover, d.config.TurnoverWeight)
		}
		if s.MarketCap < d.config.MicrocapCeiling && turnover > d.config.MicrocapTurnover {
			add(RuleMicrocapTurnover, d.config.MicrocapWeight)
		}
	} else {
		res.LowConfidence = true
	}

	res.Confidence = math.Max(0, math.Min(100, confidence))
	res.Suspicious = res.Confidence >= d.config.Threshold
	res.Rules = make([]RuleID, 0, len(fired))
	for rule := range fired {
		res.Rules = append(res.Rules, rule)
	}
	sort.Slice(res.Rules, func(i, j int) bool { return res.Rules[i] < res.Rules[j] })

	return res
}
