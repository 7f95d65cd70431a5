package scoring

import (
	"math"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// Factors holds every per-factor score feeding the composite, each in [0,100]
type Factors struct {
	RSI            float64 `json:"rsi"`
	MACD           float64 `json:"macd"`
	Bollinger      float64 `json:"bollinger"`
	Correlation    float64 `json:"correlation"`
	Momentum       float64 `json:"momentum"`
	VolumeActivity float64 `json:"volume_activity"`
	MarketCapRisk  float64 `json:"market_cap_risk"`
	Volatility     float64 `json:"volatility"`
}

// Neutral is the factor score for snapshots without usable price changes
const Neutral = 50.0

// Volume activity is computed on a 0-150 scale and rescaled
const maxVolumeActivity = 150.0

// MomentumScore rewards aligned 1h/24h/7d moves
func MomentumScore(s market.CoinSnapshot) float64 {
	if s.Quality.MissingChanges {
		return Neutral
	}

	var momentum float64
	if s.PercentChange1h > 3 && s.PercentChange24h > 5 {
		momentum += 15
	}

	switch {
	case s.PercentChange24h > 20:
		momentum += 50
	case s.PercentChange24h > 10:
		momentum += 40
	case s.PercentChange24h > 5:
		momentum += 25
	case s.PercentChange24h < -10:
		momentum -= 40
	}

	if s.PercentChange7d > 20 && s.PercentChange24h > 5 {
		momentum += 35
	} else if s.PercentChange7d < -20 {
		momentum -= 30
	}

	return clamp(momentum)
}

// VolumeActivityScore grades turnover and its 24h change
func VolumeActivityScore(s market.CoinSnapshot) float64 {
	base := 30.0
	if turnover, ok := s.Turnover(); ok {
		switch {
		case turnover >= 0.15:
			base = 100
		case turnover >= 0.05:
			base = 60
		}
	}

	if !s.Quality.MissingVolumeChange {
		switch {
		case s.VolumeChange24h > 100:
			base *= 2.0
		case s.VolumeChange24h > 50:
			base *= 1.6
		case s.VolumeChange24h > 20:
			base *= 1.3
		case s.VolumeChange24h < -40:
			base *= 0.6
		}
	}

	return clamp(math.Min(base, maxVolumeActivity) * 100 / maxVolumeActivity)
}

// MarketCapRiskScore is higher for smaller caps
func MarketCapRiskScore(marketCap float64) float64 {
	switch market.TierFor(marketCap) {
	case market.TierMicro:
		return 100
	case market.TierSmall:
		return 70
	case market.TierMid:
		return 40
	default:
		return 10
	}
}

// VolatilityScore weights recent moves heavier and boosts aligned uptrends
func VolatilityScore(s market.CoinSnapshot) float64 {
	if s.Quality.MissingChanges {
		return Neutral
	}
	vol := (math.Abs(s.PercentChange1h)*3 + math.Abs(s.PercentChange24h)*2 + math.Abs(s.PercentChange7d)) / 6
	if s.PercentChange24h > 0 && s.PercentChange7d > 0 {
		vol *= 1.3
	}
	return clamp(vol)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
