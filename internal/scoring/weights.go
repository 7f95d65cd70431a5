package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when a weight set cannot be used
var ErrInvalidWeights = errors.New("invalid scoring weights")

// Weights are percentage points per factor and must sum to 100
type Weights struct {
	RSI            float64 `yaml:"rsi" json:"rsi"`
	MACD           float64 `yaml:"macd" json:"macd"`
	Bollinger      float64 `yaml:"bollinger" json:"bollinger"`
	Correlation    float64 `yaml:"correlation" json:"correlation"`
	Momentum       float64 `yaml:"momentum" json:"momentum"`
	VolumeActivity float64 `yaml:"volume_activity" json:"volume_activity"`
	MarketCapRisk  float64 `yaml:"market_cap_risk" json:"market_cap_risk"`
	Volatility     float64 `yaml:"volatility" json:"volatility"`
}

// DefaultWeights returns the production weighting
func DefaultWeights() Weights {
	return Weights{
		RSI:            15, // oversold recovery
		MACD:           15, // trend confirmation
		Bollinger:      10, // breakout detection
		Correlation:    15, // BTC context
		Momentum:       15,
		VolumeActivity: 15,
		MarketCapRisk:  10, // risk/reward from size
		Volatility:     5,
	}
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.RSI + w.MACD + w.Bollinger + w.Correlation +
		w.Momentum + w.VolumeActivity + w.MarketCapRisk + w.Volatility
}

// Validate checks every weight is non-negative and the set sums to 100
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"rsi", w.RSI},
		{"macd", w.MACD},
		{"bollinger", w.Bollinger},
		{"correlation", w.Correlation},
		{"momentum", w.Momentum},
		{"volume_activity", w.VolumeActivity},
		{"market_cap_risk", w.MarketCapRisk},
		{"volatility", w.Volatility},
	}
	for _, n := range named {
		if n.value < 0 || math.IsNaN(n.value) {
			return fmt.Errorf("%w: %s weight %.2f is negative", ErrInvalidWeights, n.name, n.value)
		}
	}

	if sum := w.Sum(); math.Abs(sum-100) > 0.01 {
		return fmt.Errorf("%w: weights sum to %.2f, expected 100", ErrInvalidWeights, sum)
	}
	return nil
}

// apply returns the weighted mean of the factor scores on a 0-100 scale
func (w Weights) apply(f Factors) float64 {
	total := w.RSI*f.RSI +
		w.MACD*f.MACD +
		w.Bollinger*f.Bollinger +
		w.Correlation*f.Correlation +
		w.Momentum*f.Momentum +
		w.VolumeActivity*f.VolumeActivity +
		w.MarketCapRisk*f.MarketCapRisk +
		w.Volatility*f.Volatility
	return total / 100
}
