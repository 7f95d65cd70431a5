package indicators

import (
	"math"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// Neutral is the score reported when an indicator cannot be estimated
const Neutral = 50.0

// Scores holds the three snapshot-derived indicator proxies. RSI, MACD and
// Bollinger are favourability scores in [0,100]; the *Value fields carry the
// underlying estimates for verbose renderers.
type Scores struct {
	RSI       float64 `json:"rsi"`
	MACD      float64 `json:"macd"`
	Bollinger float64 `json:"bollinger"`

	RSIValue     float64 `json:"rsi_value"`
	MACDValue    float64 `json:"macd_value"`
	BandPosition float64 `json:"band_position"`
	Volatility   float64 `json:"volatility"`
	Estimated    bool    `json:"estimated"`
}

// NeutralScores is returned for snapshots without usable price changes
func NeutralScores() Scores {
	return Scores{
		RSI:          Neutral,
		MACD:         Neutral,
		Bollinger:    Neutral,
		RSIValue:     Neutral,
		BandPosition: 0.5,
	}
}

// Engine approximates RSI/MACD/Bollinger from 1h/24h/7d percent changes.
// A full price history is never available, so every output is a proxy.
type Engine struct {
	config *Config
}

// Config holds the proxy parameters
type Config struct {
	// RSI proxy
	RecoveryCeiling float64 `yaml:"recovery_ceiling"` // 45: top of the best-entry band
	RecoveryFloor   float64 `yaml:"recovery_floor"`   // 30: bottom of the best-entry band
	WeeklyNudge     float64 `yaml:"weekly_nudge"`     // ±5 RSI points for strong 7d trend
	WeeklyTrendPct  float64 `yaml:"weekly_trend_pct"` // 20% 7d move counts as strong

	// MACD proxy
	AccelerationBonus float64 `yaml:"acceleration_bonus"` // +10 when 1h confirms

	// Bollinger proxy
	BandStdDev      float64 `yaml:"band_std_dev"`      // 2σ bands
	MinSigma        float64 `yaml:"min_sigma"`         // floor on daily σ estimate
	SqueezeVol      float64 `yaml:"squeeze_vol"`       // <3 volatility = squeeze
	BreakoutVol     float64 `yaml:"breakout_vol"`      // >15 volatility with push = breakout
	TrendVol        float64 `yaml:"trend_vol"`         // >10 volatility with positive day
	UpperBandEdge   float64 `yaml:"upper_band_edge"`   // %B ≥ 0.8
	LowerBandEdge   float64 `yaml:"lower_band_edge"`   // %B ≤ 0.2
	BreakoutPushPct float64 `yaml:"breakout_push_pct"` // 24h > 5%
}

// DefaultConfig returns the production proxy parameters
func DefaultConfig() *Config {
	return &Config{
		RecoveryCeiling:   45,
		RecoveryFloor:     30,
		WeeklyNudge:       5,
		WeeklyTrendPct:    20,
		AccelerationBonus: 10,
		BandStdDev:        2,
		MinSigma:          1,
		SqueezeVol:        3,
		BreakoutVol:       15,
		TrendVol:          10,
		UpperBandEdge:     0.8,
		LowerBandEdge:     0.2,
		BreakoutPushPct:   5,
	}
}

// NewEngine creates an indicator engine; nil config uses defaults
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// Compute derives all three proxies. It never fails: snapshots flagged with
// missing price changes get neutral scores.
func (e *Engine) Compute(s market.CoinSnapshot) Scores {
	if s.Quality.MissingChanges {
		return NeutralScores()
	}

	out := Scores{Estimated: true}
	out.RSIValue = e.rsiValue(s.PercentChange24h, s.PercentChange7d)
	out.RSI = clamp(rsiZoneScore(out.RSIValue))

	out.MACDValue = s.PercentChange24h - s.PercentChange7d/7
	out.MACD = clamp(e.macdScore(out.MACDValue, s.PercentChange1h))

	out.Volatility = math.Abs(s.PercentChange24h) + math.Abs(s.PercentChange7d)/7
	out.BandPosition = e.bandPosition(s.PercentChange24h, s.PercentChange7d)
	out.Bollinger = clamp(e.bollingerScore(out.BandPosition, out.Volatility, s.PercentChange24h))

	return out
}

// rsiValue estimates an RSI-like oscillator reading from momentum
func (e *Engine) rsiValue(change24h, change7d float64) float64 {
	// Pullback inside a weekly uptrend: the best-entry band
	if change24h < 0 && change7d > 0 {
		depth := math.Min(math.Abs(change24h), e.config.RecoveryCeiling-e.config.RecoveryFloor)
		return e.config.RecoveryCeiling - depth
	}

	var rsi float64
	switch {
	case change24h > 20:
		rsi = 75
	case change24h > 10:
		rsi = 65
	case change24h > 5:
		rsi = 55
	case change24h > -5:
		rsi = 50
	case change24h > -10:
		rsi = 40
	case change24h > -20:
		rsi = 30
	default:
		rsi = 25
	}

	if change7d > e.config.WeeklyTrendPct {
		rsi += e.config.WeeklyNudge
	} else if change7d < -e.config.WeeklyTrendPct {
		rsi -= e.config.WeeklyNudge
	}

	return clamp(rsi)
}

// rsiZoneScore turns an oscillator reading into an entry score
func rsiZoneScore(rsi float64) float64 {
	switch {
	case rsi >= 30 && rsi <= 45:
		return 80 // recently oversold, starting recovery
	case rsi > 45 && rsi <= 55:
		return 50
	case rsi > 55 && rsi <= 65:
		return 60
	case rsi > 70:
		return 20 // overbought
	case rsi < 30:
		return 40 // deep oversold reversal play
	default:
		return 50
	}
}

func (e *Engine) macdScore(macd, change1h float64) float64 {
	var score float64
	switch {
	case macd > 5:
		score = 80
	case macd > 2:
		score = 65
	case macd > 0:
		score = 55
	case macd > -2:
		score = 45
	case macd > -5:
		score = 30
	default:
		score = 20
	}

	if change1h > 0 && macd > 0 {
		score += e.config.AccelerationBonus
	}
	return score
}

// bandPosition places the 24h move inside bands built around the 7d daily mean.
// Returns %B in [0,1]: 0 = lower band, 1 = upper band.
func (e *Engine) bandPosition(change24h, change7d float64) float64 {
	mid := change7d / 7
	sigma := math.Max(math.Abs(change7d)/math.Sqrt(7), e.config.MinSigma)
	half := e.config.BandStdDev * sigma

	pos := (change24h - (mid - half)) / (2 * half)
	return math.Max(0, math.Min(1, pos))
}

func (e *Engine) bollingerScore(percentB, volatility, change24h float64) float64 {
	switch {
	case volatility < e.config.SqueezeVol:
		return 40 // squeeze, wait for breakout
	case percentB >= e.config.UpperBandEdge:
		if volatility > e.config.BreakoutVol && change24h > e.config.BreakoutPushPct {
			return 75
		}
		return 40
	case percentB <= e.config.LowerBandEdge:
		return 70
	case volatility > e.config.TrendVol && change24h > 0:
		return 60
	default:
		return Neutral
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return Neutral
	}
	return math.Max(0, math.Min(100, v))
}
