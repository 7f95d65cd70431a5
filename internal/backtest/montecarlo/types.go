package montecarlo

import (
	"errors"
	"fmt"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// ErrInvalidConfig is returned when a simulation cannot be run as configured
var ErrInvalidConfig = errors.New("invalid simulation config")

// Kind labels every report so it is never mistaken for a historical backtest
const Kind = "synthetic_monte_carlo"

// Disclaimer is printed alongside every report
const Disclaimer = "Synthetic simulation, not a historical backtest. Outcomes are sampled from " +
	"score-derived win probabilities and fixed target/stop levels; they do not describe past or future performance."

// Trade is one simulated position, usually built from a ranked candidate
type Trade struct {
	Symbol         string           `json:"symbol"`
	WinProbability float64          `json:"win_probability"`
	TargetPct      float64          `json:"target_pct"`
	StopPct        float64          `json:"stop_pct"`
	PositionPct    float64          `json:"position_pct"`
	RiskLevel      market.RiskLevel `json:"risk_level"`
}

// RiskProbabilities holds one probability per risk level
type RiskProbabilities struct {
	Medium  float64 `yaml:"medium" json:"medium"`
	High    float64 `yaml:"high" json:"high"`
	Extreme float64 `yaml:"extreme" json:"extreme"`
}

// For returns the probability for a risk level; unknown levels use Medium
func (r RiskProbabilities) For(level market.RiskLevel) float64 {
	switch level {
	case market.RiskHigh:
		return r.High
	case market.RiskExtreme:
		return r.Extreme
	default:
		return r.Medium
	}
}

func (r RiskProbabilities) valid() bool {
	for _, p := range []float64{r.Medium, r.High, r.Extreme} {
		if p < 0 || p > 1 {
			return false
		}
	}
	return true
}

// Config controls a simulation batch
type Config struct {
	Runs         int     `yaml:"runs"`           // M
	TradesPerRun int     `yaml:"trades_per_run"` // K; 0 = one pass over the candidates
	Seed         *uint64 `yaml:"seed,omitempty"` // nil = random, reported for replay
	Workers      int     `yaml:"workers"`

	// Outcome model: a win either reaches the full target or closes at a
	// uniform partial gain in [PartialFloor×target, target]; losses mirror it.
	FullTargetProb RiskProbabilities `yaml:"full_target_prob"`
	FullStopProb   RiskProbabilities `yaml:"full_stop_prob"`
	PartialFloor   float64           `yaml:"partial_floor"`

	ProfitFactorCap float64 `yaml:"profit_factor_cap"`
}

// DefaultConfig returns 100 unseeded runs with the risk-aware outcome model
func DefaultConfig() *Config {
	return &Config{
		Runs:            100,
		TradesPerRun:    0,
		Workers:         4,
		FullTargetProb:  RiskProbabilities{Medium: 0.70, High: 0.60, Extreme: 0.50},
		FullStopProb:    RiskProbabilities{Medium: 0.50, High: 0.60, Extreme: 0.70},
		PartialFloor:    0.25,
		ProfitFactorCap: 999,
	}
}

// Validate rejects settings that would falsify the report
func (c *Config) Validate() error {
	if c.Runs <= 0 {
		return fmt.Errorf("%w: runs must be positive, got %d", ErrInvalidConfig, c.Runs)
	}
	if c.TradesPerRun < 0 {
		return fmt.Errorf("%w: trades per run must be ≥0, got %d", ErrInvalidConfig, c.TradesPerRun)
	}
	if !c.FullTargetProb.valid() || !c.FullStopProb.valid() {
		return fmt.Errorf("%w: outcome probabilities must lie in [0,1]", ErrInvalidConfig)
	}
	if c.PartialFloor < 0 || c.PartialFloor > 1 {
		return fmt.Errorf("%w: partial floor %.2f outside [0,1]", ErrInvalidConfig, c.PartialFloor)
	}
	if !(c.ProfitFactorCap > 0) {
		return fmt.Errorf("%w: profit factor cap must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithSeed returns a copy of the config pinned to a seed
func (c Config) WithSeed(seed uint64) *Config {
	c.Seed = &seed
	return &c
}

// ExitCounts tallies how simulated trades closed
type ExitCounts struct {
	ProfitTarget int `json:"profit_target"`
	TimeLimit    int `json:"time_limit"`
	HardStop     int `json:"hard_stop"`
}

// RunMetrics summarises one simulated run
type RunMetrics struct {
	Run            int        `json:"run"`
	Trades         int        `json:"trades"`
	TotalReturnPct float64    `json:"total_return_pct"`
	MaxDrawdownPct float64    `json:"max_drawdown_pct"`
	WinRate        float64    `json:"win_rate"`
	ProfitFactor   float64    `json:"profit_factor"`
	RiskAdjusted   float64    `json:"risk_adjusted"` // mean trade return / stdev
	Exits          ExitCounts `json:"exits"`
}

// Band is a closed interval for a fraction
type Band struct {
	Low      float64 `json:"low"`
	Expected float64 `json:"expected"`
	High     float64 `json:"high"`
}

// Contains reports whether v lies inside the band
func (b Band) Contains(v float64) bool {
	return v >= b.Low && v <= b.High
}

// Aggregate summarises all runs
type Aggregate struct {
	Runs                 int     `json:"runs"`
	TradesPerRun         int     `json:"trades_per_run"`
	MeanRiskAdjusted     float64 `json:"mean_risk_adjusted"`
	MedianRiskAdjusted   float64 `json:"median_risk_adjusted"`
	ProfitableFraction   float64 `json:"profitable_fraction"`
	MeanWinRate          float64 `json:"mean_win_rate"`
	MeanTotalReturnPct   float64 `json:"mean_total_return_pct"`
	MedianTotalReturnPct float64 `json:"median_total_return_pct"`
	BestTotalReturnPct   float64 `json:"best_total_return_pct"`
	WorstTotalReturnPct  float64 `json:"worst_total_return_pct"`
	MeanMaxDrawdownPct   float64 `json:"mean_max_drawdown_pct"`
	ExpectedWinRate      float64 `json:"expected_win_rate"`
	ExpectedProfitable   Band    `json:"expected_profitable"`
}

// Verdict grades robustness by the share of profitable runs
func (a Aggregate) Verdict() string {
	switch {
	case a.ProfitableFraction > 0.70:
		return "ROBUST"
	case a.ProfitableFraction > 0.50:
		return "MODERATE"
	default:
		return "WEAK"
	}
}

// Report is the full simulator output
type Report struct {
	Kind       string       `json:"kind"`
	Disclaimer string       `json:"disclaimer"`
	Seed       uint64       `json:"seed"`
	Trades     []Trade      `json:"trades"`
	Runs       []RunMetrics `json:"runs"`
	Aggregate  Aggregate    `json:"aggregate"`
}
