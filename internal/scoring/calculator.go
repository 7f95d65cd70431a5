package scoring

import (
	"fmt"
	"math"

	"github.com/sawpanic/cadvi/internal/domain/indicators"
	"github.com/sawpanic/cadvi/internal/domain/market"
)

// Config is the immutable scorer configuration
type Config struct {
	Weights       Weights `yaml:"weights"`
	PenaltyFactor float64 `yaml:"penalty_factor"` // share of the score removed at 100% wash confidence
}

// DefaultConfig returns production weights and a 0.7 wash penalty
func DefaultConfig() *Config {
	return &Config{
		Weights:       DefaultWeights(),
		PenaltyFactor: 0.7,
	}
}

// Validate checks weights and penalty bounds
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.PenaltyFactor < 0 || c.PenaltyFactor > 1 {
		return fmt.Errorf("%w: penalty factor %.2f outside [0,1]", ErrInvalidWeights, c.PenaltyFactor)
	}
	return nil
}

// Input bundles the upstream outputs for one coin
type Input struct {
	Snapshot       market.CoinSnapshot
	Indicators     indicators.Scores
	Correlation    float64
	WashConfidence float64
}

// CompositeScore is the scorer output
type CompositeScore struct {
	Score   float64 `json:"score"`
	Raw     float64 `json:"raw"`     // weighted sum before the wash penalty
	Penalty float64 `json:"penalty"` // multiplier applied to Raw
	Factors Factors `json:"factors"`
}

// Calculator combines factor scores into a single 0-100 opportunity score
type Calculator struct {
	config Config
}

// NewCalculator creates a scorer; nil config uses defaults. The config is
// copied so later mutation by the caller has no effect.
func NewCalculator(config *Config) (*Calculator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{config: *config}, nil
}

// Weights returns the weights in use
func (c *Calculator) Weights() Weights {
	return c.config.Weights
}

// Calculate scores one coin. Pure: identical input gives identical output.
func (c *Calculator) Calculate(in Input) CompositeScore {
	f := Factors{
		RSI:            clamp(in.Indicators.RSI),
		MACD:           clamp(in.Indicators.MACD),
		Bollinger:      clamp(in.Indicators.Bollinger),
		Correlation:    clamp(in.Correlation),
		Momentum:       MomentumScore(in.Snapshot),
		VolumeActivity: VolumeActivityScore(in.Snapshot),
		MarketCapRisk:  MarketCapRiskScore(in.Snapshot.MarketCap),
		Volatility:     VolatilityScore(in.Snapshot),
	}

	conf := math.Max(0, math.Min(100, in.WashConfidence))
	raw := c.config.Weights.apply(f)
	penalty := 1 - conf/100*c.config.PenaltyFactor

	return CompositeScore{
		Score:   clamp(raw * penalty),
		Raw:     raw,
		Penalty: penalty,
		Factors: f,
	}
}
