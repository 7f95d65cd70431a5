package montecarlo

import "github.com/sawpanic/cadvi/internal/application/pipeline"

// FromCandidates turns ranked candidates into simulated trades, keeping rank order
func FromCandidates(candidates []pipeline.ScoredCandidate) []Trade {
	trades := make([]Trade, 0, len(candidates))
	for _, c := range candidates {
		trades = append(trades, Trade{
			Symbol:         c.Symbol,
			WinProbability: c.WinProbability,
			TargetPct:      c.TargetPct,
			StopPct:        c.StopPct,
			PositionPct:    c.PositionSizePct,
			RiskLevel:      c.RiskLevel,
		})
	}
	return trades
}
