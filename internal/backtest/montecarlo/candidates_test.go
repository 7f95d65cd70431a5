package montecarlo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/domain/market"
)

func TestFromCandidates(t *testing.T) {
	candidates := []pipeline.ScoredCandidate{
		{
			CoinSnapshot:    market.CoinSnapshot{Symbol: "ALPHA"},
			WinProbability:  0.62,
			TargetPct:       15,
			StopPct:         7.5,
			PositionSizePct: 10,
			RiskLevel:       market.RiskExtreme,
		},
		{
			CoinSnapshot:    market.CoinSnapshot{Symbol: "GAMMA"},
			WinProbability:  0.59,
			TargetPct:       10,
			StopPct:         5,
			PositionSizePct: 6.5,
			RiskLevel:       market.RiskMedium,
		},
	}

	trades := FromCandidates(candidates)
	require.Len(t, trades, 2)
	assert.Equal(t, Trade{
		Symbol:         "ALPHA",
		WinProbability: 0.62,
		TargetPct:      15,
		StopPct:        7.5,
		PositionPct:    10,
		RiskLevel:      market.RiskExtreme,
	}, trades[0])
	assert.Equal(t, "GAMMA", trades[1].Symbol)

	report, err := NewSimulator().Run(context.Background(), trades, DefaultConfig().WithSeed(11))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Aggregate.TradesPerRun)

	assert.Empty(t, FromCandidates(nil))
}
