package pipeline

import (
	"time"

	"github.com/sawpanic/cadvi/internal/domain/indicators"
	"github.com/sawpanic/cadvi/internal/domain/market"
	"github.com/sawpanic/cadvi/internal/domain/wash"
	"github.com/sawpanic/cadvi/internal/regime"
	"github.com/sawpanic/cadvi/internal/scoring"
)

// ScoredCandidate is one ranked opportunity. The snapshot is embedded so its
// fields serialize at the top level alongside the derived values.
type ScoredCandidate struct {
	market.CoinSnapshot

	Score       float64            `json:"score"`
	RawScore    float64            `json:"raw_score"`
	Factors     scoring.Factors    `json:"factors"`
	Indicators  indicators.Scores  `json:"indicators"`
	Wash        wash.Result        `json:"wash"`
	Correlation regime.Correlation `json:"correlation"`

	Volatility float64 `json:"volatility"`
	TargetPct  float64 `json:"target_pct"`
	StopPct    float64 `json:"stop_pct"`
	Timeframe  string  `json:"timeframe"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`

	PositionSizePct float64 `json:"position_size_pct"`
	WinProbability  float64 `json:"win_probability"`
	RewardRisk      float64 `json:"reward_risk"`

	RiskLevel  market.RiskLevel  `json:"risk_level"`
	Tier       market.Tier       `json:"tier"`
	Categories []market.Category `json:"categories"`
	InfoURL    string            `json:"info_url,omitempty"`
}

// WashSuspect is a coin flagged by the wash-trading detector
type WashSuspect struct {
	Symbol           string      `json:"symbol"`
	Name             string      `json:"name"`
	MarketCap        float64     `json:"market_cap"`
	Volume24h        float64     `json:"volume_24h"`
	VolumeChange24h  float64     `json:"volume_change_24h"`
	PercentChange24h float64     `json:"percent_change_24h"`
	Wash             wash.Result `json:"wash"`
}

// Outcome distinguishes an empty ranking from a ranking with entries
type Outcome string

const (
	OutcomeOpportunities   Outcome = "opportunities"
	OutcomeNoOpportunities Outcome = "no_opportunities"
)

// Result is the output of a single scan
type Result struct {
	ScanID      string          `json:"scan_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Category    market.Category `json:"category,omitempty"`
	BTCRegime   regime.Regime   `json:"btc_regime"`
	Outcome     Outcome         `json:"outcome"`

	Candidates   []ScoredCandidate `json:"candidates"`
	WashSuspects []WashSuspect     `json:"wash_suspects"`

	Analyzed int `json:"analyzed"`
	Eligible int `json:"eligible"`
	Rejected int `json:"rejected"` // failed ingestion validation
	Excluded int `json:"excluded"` // stablecoins, illiquid listings

	StepDurations map[string]time.Duration `json:"step_durations"`
	TotalDuration time.Duration            `json:"total_duration"`
}

// NoOpportunities reports the valid "nothing passes the gates" state
func (r *Result) NoOpportunities() bool {
	return r.Outcome == OutcomeNoOpportunities
}
