package montecarlo

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

func sampleTrades() []Trade {
	levels := []market.RiskLevel{market.RiskMedium, market.RiskHigh, market.RiskExtreme}
	targets := []float64{20, 15, 12, 10}

	trades := make([]Trade, 10)
	for i := range trades {
		target := targets[i%len(targets)]
		trades[i] = Trade{
			Symbol:         string(rune('A' + i)),
			WinProbability: 0.58 + float64(i)*0.0125,
			TargetPct:      target,
			StopPct:        target / 2,
			PositionPct:    10,
			RiskLevel:      levels[i%len(levels)],
		}
	}
	return trades
}

func TestRun_SeededIsReproducible(t *testing.T) {
	sim := NewSimulator()
	config := DefaultConfig().WithSeed(42)
	config.Runs = 100
	config.TradesPerRun = 10
	config.Workers = 8

	first, err := sim.Run(context.Background(), sampleTrades(), config)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := sim.Run(context.Background(), sampleTrades(), config)
		require.NoError(t, err)
		assert.Equal(t, first.Aggregate, again.Aggregate)
		assert.Equal(t, first.Runs, again.Runs)
	}

	// Worker count must not change results
	config.Workers = 1
	serial, err := sim.Run(context.Background(), sampleTrades(), config)
	require.NoError(t, err)
	assert.Equal(t, first.Aggregate, serial.Aggregate)

	a, err := json.Marshal(first.Aggregate)
	require.NoError(t, err)
	b, err := json.Marshal(serial.Aggregate)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_DifferentSeedsDiffer(t *testing.T) {
	sim := NewSimulator()

	a, err := sim.Run(context.Background(), sampleTrades(), DefaultConfig().WithSeed(1))
	require.NoError(t, err)
	b, err := sim.Run(context.Background(), sampleTrades(), DefaultConfig().WithSeed(2))
	require.NoError(t, err)

	assert.NotEqual(t, a.Runs, b.Runs)
}

func TestRun_UnseededProfitableFractionWithinBand(t *testing.T) {
	sim := NewSimulator()
	config := DefaultConfig()
	config.Runs = 1000
	config.TradesPerRun = 10

	repeat := func(tr Trade) []Trade {
		out := make([]Trade, 10)
		for i := range out {
			out[i] = tr
		}
		return out
	}
	// Positive edge: expected profitable share about 0.70
	midEdge := repeat(Trade{Symbol: "MID", WinProbability: 0.4, TargetPct: 12, StopPct: 6, PositionPct: 5, RiskLevel: market.RiskMedium})
	// Negative edge: almost every run loses
	badEdge := repeat(Trade{Symbol: "BAD", WinProbability: 0.3, TargetPct: 6, StopPct: 12, PositionPct: 5, RiskLevel: market.RiskMedium})

	bands := map[string]Band{}
	for name, trades := range map[string][]Trade{"sample": sampleTrades(), "mid": midEdge, "bad": badEdge} {
		report, err := sim.Run(context.Background(), trades, config)
		require.NoError(t, err, name)

		band := report.Aggregate.ExpectedProfitable
		assert.True(t, band.Contains(report.Aggregate.ProfitableFraction),
			"%s: profitable fraction %.3f outside [%.3f, %.3f]", name, report.Aggregate.ProfitableFraction, band.Low, band.High)
		assert.Less(t, band.High-band.Low, 0.25, name)
		assert.InDelta(t, report.Aggregate.ExpectedWinRate, report.Aggregate.MeanWinRate, 0.08, name)
		bands[name] = band
	}

	assert.InDelta(t, 0.70, bands["mid"].Expected, 0.02)
	assert.Less(t, bands["bad"].Expected, 0.05)
	assert.Greater(t, bands["mid"].Low, bands["bad"].High, "the band separates a winning edge from a losing one")
}

func TestExpected_BandNarrowsWithRuns(t *testing.T) {
	trades := []Trade{{Symbol: "MID", WinProbability: 0.4, TargetPct: 12, StopPct: 6, PositionPct: 5, RiskLevel: market.RiskMedium}}
	config := DefaultConfig()

	_, small := expected(trades, 10, 100, config)
	_, large := expected(trades, 10, 10_000, config)

	assert.Equal(t, small.Expected, large.Expected)
	assert.Greater(t, small.High-small.Low, large.High-large.Low)
	// The approximation allowance is the floor on the half-width
	assert.InDelta(t, 2*(bandZ*math.Sqrt(large.Expected*(1-large.Expected)/10_000)+bandSlack), large.High-large.Low, 1e-12)
}

func TestRun_ReportShape(t *testing.T) {
	report, err := NewSimulator().Run(context.Background(), sampleTrades(), DefaultConfig().WithSeed(7))
	require.NoError(t, err)

	assert.Equal(t, Kind, report.Kind)
	assert.Equal(t, "synthetic_monte_carlo", report.Kind)
	assert.Contains(t, report.Disclaimer, "not a historical backtest")
	assert.Equal(t, uint64(7), report.Seed)
	require.Len(t, report.Runs, 100)
	assert.Equal(t, 10, report.Aggregate.TradesPerRun)

	agg := report.Aggregate
	assert.LessOrEqual(t, agg.WorstTotalReturnPct, agg.MedianTotalReturnPct)
	assert.LessOrEqual(t, agg.MedianTotalReturnPct, agg.BestTotalReturnPct)
	assert.Contains(t, []string{"ROBUST", "MODERATE", "WEAK"}, agg.Verdict())

	for _, r := range report.Runs {
		assert.Equal(t, 10, r.Exits.ProfitTarget+r.Exits.TimeLimit+r.Exits.HardStop)
		assert.GreaterOrEqual(t, r.MaxDrawdownPct, 0.0)
		assert.GreaterOrEqual(t, r.WinRate, 0.0)
		assert.LessOrEqual(t, r.WinRate, 1.0)
		assert.LessOrEqual(t, r.ProfitFactor, 999.0)
	}
}

func TestRun_CyclesCandidates(t *testing.T) {
	config := DefaultConfig().WithSeed(3)
	config.TradesPerRun = 25

	report, err := NewSimulator().Run(context.Background(), sampleTrades()[:3], config)
	require.NoError(t, err)
	assert.Equal(t, 25, report.Runs[0].Trades)
}

func TestRun_CertainOutcomes(t *testing.T) {
	config := DefaultConfig().WithSeed(9)
	config.Runs = 5
	config.FullTargetProb = RiskProbabilities{Medium: 1, High: 1, Extreme: 1}

	winner := []Trade{{Symbol: "WIN", WinProbability: 1, TargetPct: 10, StopPct: 5, PositionPct: 10}}
	config.TradesPerRun = 4

	report, err := NewSimulator().Run(context.Background(), winner, config)
	require.NoError(t, err)

	for _, r := range report.Runs {
		assert.InDelta(t, 4.0, r.TotalReturnPct, 1e-9)
		assert.Equal(t, 999.0, r.ProfitFactor)
		assert.Equal(t, 1.0, r.WinRate)
		assert.Zero(t, r.MaxDrawdownPct)
	}
	assert.Equal(t, 1.0, report.Aggregate.ProfitableFraction)
	assert.Equal(t, "ROBUST", report.Aggregate.Verdict())
	assert.Equal(t, 1.0, report.Aggregate.ExpectedProfitable.Expected)
}

func TestRun_InvalidConfig(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()

	tests := []struct {
		name   string
		trades []Trade
		mutate func(*Config)
	}{
		{"zero runs", sampleTrades(), func(c *Config) { c.Runs = 0 }},
		{"negative k", sampleTrades(), func(c *Config) { c.TradesPerRun = -1 }},
		{"no trades", nil, func(c *Config) {}},
		{"bad outcome prob", sampleTrades(), func(c *Config) { c.FullStopProb.High = 1.2 }},
		{"bad win prob", []Trade{{Symbol: "X", WinProbability: 1.5, TargetPct: 10, StopPct: 5}}, func(c *Config) {}},
		{"zero stop", []Trade{{Symbol: "X", WinProbability: 0.5, TargetPct: 10, StopPct: 0}}, func(c *Config) {}},
		{"negative target", []Trade{{Symbol: "X", WinProbability: 0.5, TargetPct: -10, StopPct: 5}}, func(c *Config) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			_, err := sim.Run(ctx, tt.trades, config)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulator().Run(ctx, sampleTrades(), DefaultConfig().WithSeed(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMedianAndMeanStd(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))

	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, mean)
	assert.Equal(t, 2.0, std)
}
