package montecarlo

import (
	"math"
	"sort"
)

// Band half-width: z standard errors of the run-count binomial plus an
// allowance for the normal approximation of a short run, which is off by
// about 0.01-0.02 at ten trades. An unseeded report has to land inside its
// own band, so z is wide enough that a miss is a defect rather than bad luck.
const (
	bandZ     = 4.0
	bandSlack = 0.05
)

func aggregate(runs []RunMetrics, trades []Trade, k int, config *Config) Aggregate {
	agg := Aggregate{Runs: len(runs), TradesPerRun: k}
	if len(runs) == 0 {
		return agg
	}

	riskAdj := make([]float64, len(runs))
	totals := make([]float64, len(runs))
	var profitable int
	var sumWin, sumDD float64

	for i, r := range runs {
		riskAdj[i] = r.RiskAdjusted
		totals[i] = r.TotalReturnPct
		if r.TotalReturnPct > 0 {
			profitable++
		}
		sumWin += r.WinRate
		sumDD += r.MaxDrawdownPct
	}

	n := float64(len(runs))
	agg.MeanRiskAdjusted, _ = meanStd(riskAdj)
	agg.MedianRiskAdjusted = median(riskAdj)
	agg.ProfitableFraction = float64(profitable) / n
	agg.MeanWinRate = sumWin / n
	agg.MeanTotalReturnPct, _ = meanStd(totals)
	agg.MedianTotalReturnPct = median(totals)
	agg.BestTotalReturnPct = totals[0]
	agg.WorstTotalReturnPct = totals[0]
	for _, v := range totals {
		agg.BestTotalReturnPct = math.Max(agg.BestTotalReturnPct, v)
		agg.WorstTotalReturnPct = math.Min(agg.WorstTotalReturnPct, v)
	}
	agg.MeanMaxDrawdownPct = sumDD / n

	agg.ExpectedWinRate, agg.ExpectedProfitable = expected(trades, k, len(runs), config)
	return agg
}

// expected derives the win rate implied by the inputs and a band for the
// share of profitable runs. A run's return is a sum of k independent trade
// returns, approximated as normal from each trade's exact mean and variance.
func expected(trades []Trade, k, runs int, config *Config) (float64, Band) {
	if k == 0 || len(trades) == 0 {
		return 0, Band{}
	}

	var winRate, mu, variance float64
	f := config.PartialFloor
	uniformMean := (1 + f) / 2
	uniformSecond := (1 + f + f*f) / 3

	for i := 0; i < k; i++ {
		t := trades[i%len(trades)]
		p := t.WinProbability
		winRate += p

		a := config.FullTargetProb.For(t.RiskLevel)
		b := config.FullStopProb.For(t.RiskLevel)
		w := t.PositionPct / 100 / 100

		winMean := t.TargetPct * (a + (1-a)*uniformMean)
		winSecond := t.TargetPct * t.TargetPct * (a + (1-a)*uniformSecond)
		lossMean := -t.StopPct * (b + (1-b)*uniformMean)
		lossSecond := t.StopPct * t.StopPct * (b + (1-b)*uniformSecond)

		m := w * (p*winMean + (1-p)*lossMean)
		m2 := w * w * (p*winSecond + (1-p)*lossSecond)
		mu += m
		variance += m2 - m*m
	}
	winRate /= float64(k)

	var q float64
	switch {
	case variance > 0:
		q = normalCDF(mu / math.Sqrt(variance))
	case mu > 0:
		q = 1
	}

	half := bandZ*math.Sqrt(q*(1-q)/float64(runs)) + bandSlack
	return winRate, Band{
		Low:      math.Max(0, q-half),
		Expected: q,
		High:     math.Min(1, q+half),
	}
}

func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// meanStd returns the mean and population standard deviation
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
