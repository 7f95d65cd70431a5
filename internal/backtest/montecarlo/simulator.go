package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/cadvi/internal/exits"
)

// Simulator runs Monte Carlo batches over a fixed trade list
type Simulator struct{}

// NewSimulator creates a simulator
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Run simulates config.Runs independent runs. With a seed, run i draws from a
// PCG stream keyed by (seed, i), so results are identical across invocations
// regardless of worker scheduling.
func (s *Simulator) Run(ctx context.Context, trades []Trade, config *Config) (*Report, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := validate(trades, config); err != nil {
		return nil, err
	}

	k := config.TradesPerRun
	if k == 0 {
		k = len(trades)
	}

	var seed uint64
	if config.Seed != nil {
		seed = *config.Seed
	} else {
		seed = rand.Uint64()
	}

	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}

	startTime := time.Now()
	runs := make([]RunMetrics, config.Runs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, uint64(i)))
			runs[i] = simulateRun(i, rng, trades, k, config)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monte carlo aborted: %w", err)
	}

	report := &Report{
		Kind:       Kind,
		Disclaimer: Disclaimer,
		Seed:       seed,
		Trades:     trades,
		Runs:       runs,
		Aggregate:  aggregate(runs, trades, k, config),
	}

	log.Info().
		Int("runs", config.Runs).
		Int("trades_per_run", k).
		Uint64("seed", seed).
		Float64("profitable_fraction", report.Aggregate.ProfitableFraction).
		Dur("duration", time.Since(startTime)).
		Msg("Monte Carlo simulation completed")

	return report, nil
}

func validate(trades []Trade, config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if len(trades) == 0 {
		return fmt.Errorf("%w: no trades to simulate", ErrInvalidConfig)
	}
	for _, t := range trades {
		if t.WinProbability < 0 || t.WinProbability > 1 || math.IsNaN(t.WinProbability) {
			return fmt.Errorf("%w: %s win probability %.3f outside [0,1]", ErrInvalidConfig, t.Symbol, t.WinProbability)
		}
		if !(t.TargetPct > 0) || !(t.StopPct > 0) {
			return fmt.Errorf("%w: %s needs positive target and stop, got %.2f/%.2f", ErrInvalidConfig, t.Symbol, t.TargetPct, t.StopPct)
		}
		if t.PositionPct < 0 || t.PositionPct > 100 {
			return fmt.Errorf("%w: %s position %.2f%% outside [0,100]", ErrInvalidConfig, t.Symbol, t.PositionPct)
		}
	}
	return nil
}

// sampleTrade draws one outcome, returned as percent move of the position
func sampleTrade(rng *rand.Rand, t Trade, config *Config) (float64, exits.ExitReason) {
	if rng.Float64() < t.WinProbability {
		if rng.Float64() < config.FullTargetProb.For(t.RiskLevel) {
			return t.TargetPct, exits.ProfitTarget
		}
		low := config.PartialFloor * t.TargetPct
		return low + rng.Float64()*(t.TargetPct-low), exits.TimeLimit
	}

	if rng.Float64() < config.FullStopProb.For(t.RiskLevel) {
		return -t.StopPct, exits.HardStop
	}
	low := config.PartialFloor * t.StopPct
	return -(low + rng.Float64()*(t.StopPct-low)), exits.TimeLimit
}

func simulateRun(run int, rng *rand.Rand, trades []Trade, k int, config *Config) RunMetrics {
	m := RunMetrics{Run: run, Trades: k}
	if k == 0 {
		return m
	}

	returns := make([]float64, k)
	equity, peak := 1.0, 1.0
	var wins int
	var grossWin, grossLoss float64

	for i := 0; i < k; i++ {
		t := trades[i%len(trades)]
		movePct, reason := sampleTrade(rng, t, config)

		switch reason {
		case exits.ProfitTarget:
			m.Exits.ProfitTarget++
		case exits.HardStop:
			m.Exits.HardStop++
		default:
			m.Exits.TimeLimit++
		}

		// Portfolio impact: position share × move
		r := t.PositionPct / 100 * movePct / 100
		returns[i] = r
		if movePct > 0 {
			wins++
			grossWin += r
		} else {
			grossLoss -= r
		}

		equity += r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak * 100; dd > m.MaxDrawdownPct {
				m.MaxDrawdownPct = dd
			}
		}
	}

	m.TotalReturnPct = (equity - 1) * 100
	m.WinRate = float64(wins) / float64(k)

	switch {
	case grossLoss > 0:
		m.ProfitFactor = math.Min(grossWin/grossLoss, config.ProfitFactorCap)
	case grossWin > 0:
		m.ProfitFactor = config.ProfitFactorCap
	}

	mean, std := meanStd(returns)
	if std > 0 {
		m.RiskAdjusted = mean / std
	}

	return m
}
