package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
)

var csvHeader = []string{
	"rank", "symbol", "name", "price", "market_cap", "change_24h", "volume_change_24h",
	"score", "wash_confidence", "correlation_bucket", "target_pct", "stop_pct",
	"take_profit", "stop_loss", "position_size_pct", "risk_level", "info_url",
}

// WriteCSV exports ranked candidates, one row each
func WriteCSV(w io.Writer, candidates []pipeline.ScoredCandidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for i, c := range candidates {
		row := []string{
			strconv.Itoa(i + 1), c.Symbol, c.Name, f(c.Price), f(c.MarketCap),
			f(c.PercentChange24h), f(c.VolumeChange24h), f(c.Score), f(c.Wash.Confidence),
			string(c.Correlation.Bucket), f(c.TargetPct), f(c.StopPct),
			f(c.TakeProfit), f(c.StopLoss), f(c.PositionSizePct), string(c.RiskLevel), c.InfoURL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
