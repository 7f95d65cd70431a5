package exits

import (
	"errors"
	"fmt"
	"math"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// ErrInvalidConfig is returned for a planner configuration that cannot produce plans
var ErrInvalidConfig = errors.New("invalid exit configuration")

// ExitReason records how a position closed
type ExitReason int

const (
	NoExit ExitReason = iota
	// HardStop: stop loss hit in full
	HardStop
	// TimeLimit: timeframe expired with a partial move
	TimeLimit
	// ProfitTarget: take profit hit in full
	ProfitTarget
)

func (er ExitReason) String() string {
	switch er {
	case NoExit:
		return "no_exit"
	case HardStop:
		return "hard_stop"
	case TimeLimit:
		return "time_limit"
	case ProfitTarget:
		return "profit_target"
	default:
		return "unknown"
	}
}

// MarshalText renders the reason by name
func (er ExitReason) MarshalText() ([]byte, error) {
	return []byte(er.String()), nil
}

// VolatilityTier maps a volatility proxy floor to a target and holding period
type VolatilityTier struct {
	MinVolatility float64 `yaml:"min_volatility"`
	TargetPct     float64 `yaml:"target_pct"`
	Timeframe     string  `yaml:"timeframe"`
}

// ExitConfig contains target tiers and stop rules
type ExitConfig struct {
	Tiers        []VolatilityTier `yaml:"tiers"`         // highest MinVolatility first
	StopFraction float64          `yaml:"stop_fraction"` // stop = target × 0.5
	MinStopPct   float64          `yaml:"min_stop_pct"`  // never tighter than 5%
}

// DefaultExitConfig returns the production target table
func DefaultExitConfig() *ExitConfig {
	return &ExitConfig{
		Tiers: []VolatilityTier{
			{MinVolatility: 30, TargetPct: 20, Timeframe: "1-3 days"},
			{MinVolatility: 15, TargetPct: 15, Timeframe: "2-5 days"},
			{MinVolatility: 8, TargetPct: 12, Timeframe: "3-7 days"},
			{MinVolatility: 0, TargetPct: 10, Timeframe: "1-2 weeks"},
		},
		StopFraction: 0.5,
		MinStopPct:   5,
	}
}

// Validate checks tiers are ordered and bottom out at zero
func (c *ExitConfig) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no volatility tiers", ErrInvalidConfig)
	}
	for i, tier := range c.Tiers {
		if tier.TargetPct <= 0 {
			return fmt.Errorf("%w: tier %d target %.2f must be positive", ErrInvalidConfig, i, tier.TargetPct)
		}
		if i > 0 && tier.MinVolatility >= c.Tiers[i-1].MinVolatility {
			return fmt.Errorf("%w: tiers must be in descending volatility order", ErrInvalidConfig)
		}
	}
	if last := c.Tiers[len(c.Tiers)-1]; last.MinVolatility != 0 {
		return fmt.Errorf("%w: lowest tier must start at 0, got %.2f", ErrInvalidConfig, last.MinVolatility)
	}
	if c.StopFraction <= 0 || c.MinStopPct <= 0 {
		return fmt.Errorf("%w: stop fraction and minimum stop must be positive", ErrInvalidConfig)
	}
	return nil
}

// Plan is the target/stop recommendation for one coin
type Plan struct {
	Volatility float64 `json:"volatility"`
	TargetPct  float64 `json:"target_pct"`
	StopPct    float64 `json:"stop_pct"`
	Timeframe  string  `json:"timeframe"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
}

// RewardRisk returns TargetPct/StopPct
func (p Plan) RewardRisk() float64 {
	if p.StopPct <= 0 {
		return 0
	}
	return p.TargetPct / p.StopPct
}

// Planner derives dynamic take-profit and stop-loss levels
type Planner struct {
	config *ExitConfig
}

// NewPlanner creates a planner; nil config uses defaults
func NewPlanner(config *ExitConfig) *Planner {
	if config == nil {
		config = DefaultExitConfig()
	}
	return &Planner{config: config}
}

// Volatility is the proxy used to pick a tier: the larger of |24h| and |7d|
func Volatility(s market.CoinSnapshot) float64 {
	return math.Max(math.Abs(s.PercentChange24h), math.Abs(s.PercentChange7d))
}

// TierFor returns the first tier whose floor the volatility reaches
func (p *Planner) TierFor(volatility float64) VolatilityTier {
	for _, tier := range p.config.Tiers {
		if volatility >= tier.MinVolatility {
			return tier
		}
	}
	return p.config.Tiers[len(p.config.Tiers)-1]
}

// Plan computes the target, stop and holding period for a snapshot
func (p *Planner) Plan(s market.CoinSnapshot) Plan {
	vol := Volatility(s)
	tier := p.TierFor(vol)
	stop := math.Max(tier.TargetPct*p.config.StopFraction, p.config.MinStopPct)

	return Plan{
		Volatility: vol,
		TargetPct:  tier.TargetPct,
		StopPct:    stop,
		Timeframe:  tier.Timeframe,
		TakeProfit: s.Price * (1 + tier.TargetPct/100),
		StopLoss:   s.Price * (1 - stop/100),
	}
}
