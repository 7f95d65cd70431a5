package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/backtest/montecarlo"
	"github.com/sawpanic/cadvi/internal/domain/market"
	"github.com/sawpanic/cadvi/internal/domain/wash"
	"github.com/sawpanic/cadvi/internal/regime"
)

func TestPrice(t *testing.T) {
	tests := map[float64]string{
		64000:    "$64000",
		7.32:     "$7.32",
		0.5:      "$0.5000",
		0.0005:   "$0.000500",
		0.000001: "$0.00000100",
	}
	for in, want := range tests {
		assert.Equal(t, want, Price(in), "price %v", in)
	}
}

func TestUSD(t *testing.T) {
	tests := map[float64]string{
		1.2e12: "$1.20T",
		1.5e9:  "$1.50B",
		2.5e7:  "$25.00M",
		1500:   "$1.50K",
		12.5:   "$12.50",
	}
	for in, want := range tests {
		assert.Equal(t, want, USD(in), "usd %v", in)
	}

	assert.Equal(t, "+4.00%", Percent(4))
	assert.Equal(t, "-2.50%", Percent(-2.5))
	assert.Equal(t, "$1000.00", Notional(10_000, 10))
}

func candidate(symbol string, score float64) pipeline.ScoredCandidate {
	return pipeline.ScoredCandidate{
		CoinSnapshot: market.CoinSnapshot{
			Symbol: symbol, Name: strings.ToLower(symbol), Price: 2,
			MarketCap: 1.5e8, Volume24h: 3e7, PercentChange24h: 15, VolumeChange24h: 120,
		},
		Score:           score,
		Correlation:     regime.Correlation{Bucket: regime.BucketConfirmedStrength},
		TargetPct:       15,
		StopPct:         7.5,
		Timeframe:       "2-5 days",
		TakeProfit:      2.3,
		StopLoss:        1.85,
		PositionSizePct: 10,
		RiskLevel:       market.RiskHigh,
		InfoURL:         "https://coinmarketcap.com/currencies/" + strings.ToLower(symbol) + "/",
	}
}

func result(cands ...pipeline.ScoredCandidate) *pipeline.Result {
	r := &pipeline.Result{
		ScanID:     "scan-1",
		BTCRegime:  regime.Up,
		Candidates: cands,
		Analyzed:   9,
		Eligible:   len(cands),
		Outcome:    pipeline.OutcomeOpportunities,
	}
	if len(cands) == 0 {
		r.Outcome = pipeline.OutcomeNoOpportunities
	}
	return r
}

func TestScan(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, WithColor(false)).Scan(result(candidate("ALPHA", 75.26), candidate("GAMMA", 69.26)))

	out := buf.String()
	assert.Contains(t, out, "CADVI SCAN scan-1")
	assert.Contains(t, out, "BTC regime: UP | Category: all | Analyzed: 9 | Eligible: 2")
	assert.Less(t, strings.Index(out, "ALPHA"), strings.Index(out, "GAMMA"))
	assert.Contains(t, out, "$2.30")
	assert.NotContains(t, out, "More info", "detail only in verbose mode")
	assert.NotContains(t, out, "\x1b[")
}

func TestScan_Verbose(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, WithColor(false), WithVerbose(true), WithPortfolio(5000)).
		Scan(result(candidate("ALPHA", 75.26)))

	out := buf.String()
	assert.Contains(t, out, "#1 alpha (ALPHA)")
	assert.Contains(t, out, "confirmed_strength")
	assert.Contains(t, out, "Volume appears legitimate")
	assert.Contains(t, out, "$500.00 on $5.00K")
	assert.Contains(t, out, "Risk: HIGH")
	assert.Contains(t, out, "More info: https://coinmarketcap.com/currencies/alpha/")
}

func TestScan_NoOpportunities(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, WithColor(false)).Scan(result())
	assert.Contains(t, buf.String(), "No opportunities passed the entry gates.")

	buf.Reset()
	NewPrinter(&buf, WithColor(false)).Quick(result())
	assert.Contains(t, buf.String(), "No high-probability opportunities right now.")
}

func TestQuick(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, WithColor(false)).Quick(result(candidate("ALPHA", 75.26)))

	out := buf.String()
	assert.Contains(t, out, "TOP PICKS - READY TO TRADE:")
	assert.Contains(t, out, "ALPHA       $2.00         $2.30         +15.0%    2-5 days    75")
	assert.Contains(t, out, "Analysis: 9 coins | Passed gates: 1 | Showing: 1")
}

func TestColorForced(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, WithColor(true)).Quick(result(candidate("ALPHA", 80)))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestWashSuspects(t *testing.T) {
	suspects := []pipeline.WashSuspect{
		{Symbol: "WASHY", Name: "Washy", MarketCap: 5e7, VolumeChange24h: 600, PercentChange24h: 1,
			Wash: wash.Result{Confidence: 65, Suspicious: true, Rules: []wash.RuleID{wash.RuleExtremeVolumeFlatPrice}}},
		{Symbol: "FAKE", Name: "Fake", Wash: wash.Result{Confidence: 45, Suspicious: true}},
	}

	var buf bytes.Buffer
	NewPrinter(&buf, WithColor(false)).WashSuspects(suspects, 1)
	out := buf.String()
	assert.Contains(t, out, "WASHY (Washy)")
	assert.Contains(t, out, "Confidence: 65%")
	assert.Contains(t, out, "Volume change: +600.00%")
	assert.Contains(t, out, "Rules: extreme_volume_flat_price")
	assert.NotContains(t, out, "FAKE (Fake)")
	assert.Contains(t, out, "... and 1 more")

	buf.Reset()
	NewPrinter(&buf, WithColor(false)).WashSuspects(nil, 10)
	assert.Contains(t, buf.String(), "No wash trading detected")
}

func TestSimulation_PrintsLabelAndVerdict(t *testing.T) {
	report := &montecarlo.Report{
		Kind:       montecarlo.Kind,
		Disclaimer: montecarlo.Disclaimer,
		Seed:       42,
		Trades:     []montecarlo.Trade{{Symbol: "ALPHA", WinProbability: 0.6, TargetPct: 15, StopPct: 7.5, PositionPct: 10, RiskLevel: market.RiskHigh}},
		Aggregate: montecarlo.Aggregate{
			Runs: 100, TradesPerRun: 5, ProfitableFraction: 0.74, MeanWinRate: 0.61,
			ExpectedProfitable: montecarlo.Band{Low: 0.6, Expected: 0.7, High: 0.8},
		},
	}

	var buf bytes.Buffer
	NewPrinter(&buf, WithColor(false), WithVerbose(true)).Simulation(report)
	out := buf.String()
	assert.Contains(t, out, "[synthetic_monte_carlo]")
	assert.Contains(t, out, montecarlo.Disclaimer)
	assert.Contains(t, out, "Seed:                42")
	assert.Contains(t, out, "Profitable runs:     74.0% (expected 70.0%, band 60.0%-80.0%)")
	assert.Contains(t, out, "Verdict: ROBUST")
	assert.Contains(t, out, "ALPHA")

	report.Aggregate.ProfitableFraction = 0.4
	buf.Reset()
	NewPrinter(&buf, WithColor(false)).Simulation(report)
	assert.Contains(t, buf.String(), "Verdict: WEAK")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []pipeline.ScoredCandidate{candidate("ALPHA", 75.26)}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"1", "ALPHA", "alpha", "2", "150000000", "15", "120", "75.26", "0", "confirmed_strength",
		"15", "7.5", "2.3", "1.85", "10", "HIGH", "https://coinmarketcap.com/currencies/alpha/",
	}, rows[1])
}
