package sizing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned for sizing bounds that cannot be applied
var ErrInvalidConfig = errors.New("invalid sizing configuration")

// Config holds the Kelly scaling and portfolio bounds, in percent of capital
type Config struct {
	KellyFraction float64 `yaml:"kelly_fraction"` // half Kelly
	MinPct        float64 `yaml:"min_pct"`        // 1%
	MaxPct        float64 `yaml:"max_pct"`        // 10%
	MinWinProb    float64 `yaml:"min_win_prob"`   // 0.30
	MaxWinProb    float64 `yaml:"max_win_prob"`   // 0.75
}

// DefaultConfig returns conservative half-Kelly sizing
func DefaultConfig() *Config {
	return &Config{
		KellyFraction: 0.5,
		MinPct:        1,
		MaxPct:        10,
		MinWinProb:    0.30,
		MaxWinProb:    0.75,
	}
}

// Validate checks the bounds are ordered
func (c *Config) Validate() error {
	if c.KellyFraction <= 0 || c.KellyFraction > 1 {
		return fmt.Errorf("%w: kelly fraction %.2f outside (0,1]", ErrInvalidConfig, c.KellyFraction)
	}
	if c.MinPct <= 0 || c.MinPct > c.MaxPct || c.MaxPct > 100 {
		return fmt.Errorf("%w: size bounds [%.2f, %.2f] must satisfy 0 < min ≤ max ≤ 100", ErrInvalidConfig, c.MinPct, c.MaxPct)
	}
	if c.MinWinProb < 0 || c.MinWinProb > c.MaxWinProb || c.MaxWinProb > 1 {
		return fmt.Errorf("%w: win probability bounds [%.2f, %.2f] invalid", ErrInvalidConfig, c.MinWinProb, c.MaxWinProb)
	}
	return nil
}

// Position is the sizing recommendation for one candidate
type Position struct {
	PositionPct    float64 `json:"position_pct"`
	WinProbability float64 `json:"win_probability"`
	RewardRisk     float64 `json:"reward_risk"`
	FullKelly      float64 `json:"full_kelly"`
}

// Sizer converts a score and target/stop into a capped fractional-Kelly size
type Sizer struct {
	config *Config
}

// NewSizer creates a sizer; nil config uses defaults
func NewSizer(config *Config) *Sizer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Sizer{config: config}
}

// WinProbability maps a 0-100 score to a bounded win probability
func (s *Sizer) WinProbability(score float64) float64 {
	p := 0.5 + (score-50)/200
	if math.IsNaN(p) {
		p = 0.5
	}
	return math.Max(s.config.MinWinProb, math.Min(s.config.MaxWinProb, p))
}

// Size returns the position for a scored candidate. The result always lies
// within [MinPct, MaxPct]; an unusable reward/risk ratio yields MinPct.
func (s *Sizer) Size(score, targetPct, stopPct float64) Position {
	p := s.WinProbability(score)
	pos := Position{WinProbability: p, PositionPct: s.config.MinPct}

	if stopPct <= 0 || targetPct <= 0 {
		return pos
	}
	r := targetPct / stopPct
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return pos
	}

	kelly := p - (1-p)/r
	pos.RewardRisk = r
	pos.FullKelly = kelly
	pos.PositionPct = math.Max(s.config.MinPct, math.Min(s.config.MaxPct, kelly*s.config.KellyFraction*100))
	return pos
}
