package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/cadvi/internal/domain/indicators"
	"github.com/sawpanic/cadvi/internal/domain/market"
	"github.com/sawpanic/cadvi/internal/domain/wash"
	"github.com/sawpanic/cadvi/internal/exits"
	"github.com/sawpanic/cadvi/internal/gates"
	"github.com/sawpanic/cadvi/internal/regime"
	"github.com/sawpanic/cadvi/internal/scoring"
	"github.com/sawpanic/cadvi/internal/sizing"
)

// Step names reported to observers and progress loggers
const (
	StepRegime = "Regime"
	StepScore  = "Score"
	StepGates  = "Gates"
	StepRank   = "Rank"
)

// Steps lists the scan steps in execution order
var Steps = []string{StepRegime, StepScore, StepGates, StepRank}

// Observer receives scan telemetry
type Observer interface {
	ObserveStep(step string, d time.Duration, err error)
	ObserveScan(analyzed, eligible, washSuspects int)
}

// Progress receives step transitions, typically a terminal step logger
type Progress interface {
	StartStep(step string)
	CompleteStep()
	Finish()
	Fail(reason string)
}

// Option customises a pipeline
type Option func(*Pipeline)

// WithObserver attaches a telemetry observer
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithProgress attaches a progress logger
func WithProgress(pr Progress) Option {
	return func(p *Pipeline) { p.progress = pr }
}

// Pipeline scores, gates and ranks a batch of snapshots
type Pipeline struct {
	config *Config

	engine   *indicators.Engine
	detector *wash.Detector
	analyzer *regime.Analyzer
	scorer   *scoring.Calculator
	policy   *gates.Policy
	planner  *exits.Planner
	sizer    *sizing.Sizer

	observer Observer
	progress Progress
}

// New builds a pipeline; nil config uses defaults
func New(config *Config, opts ...Option) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	scorer, err := scoring.NewCalculator(config.Scoring)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	p := &Pipeline{
		config:   config,
		engine:   indicators.NewEngine(config.Indicators),
		detector: wash.NewDetector(config.Wash),
		analyzer: regime.NewAnalyzer(regime.NewDetector(config.Regime), config.Correlation),
		scorer:   scorer,
		policy:   gates.NewPolicy(config.Gates),
		planner:  exits.NewPlanner(config.Exits),
		sizer:    sizing.NewSizer(config.Sizing),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the active configuration
func (p *Pipeline) Config() *Config {
	return p.config
}

// Policy exposes the entry policy, e.g. for threshold printouts
func (p *Pipeline) Policy() *gates.Policy {
	return p.policy
}

type scan struct {
	batch    market.Batch
	category market.Category

	members []market.CoinSnapshot
	evals   []evaluation
	result  *Result
}

type evaluation struct {
	candidate ScoredCandidate
	gate      *gates.EntryGateResult
}

// Run scores every snapshot in the batch that belongs to category ("" = all),
// keeps those passing the entry gates and ranks them. An empty ranking is a
// valid result with Outcome NoOpportunities; errors only come from ctx.
func (p *Pipeline) Run(ctx context.Context, batch market.Batch, category market.Category) (*Result, error) {
	startTime := time.Now()

	s := &scan{
		batch:    batch,
		category: category,
		result: &Result{
			ScanID:        uuid.NewString(),
			GeneratedAt:   startTime.UTC(),
			Category:      category,
			Candidates:    []ScoredCandidate{},
			WashSuspects:  []WashSuspect{},
			Rejected:      batch.Rejected,
			Excluded:      batch.Excluded,
			StepDurations: make(map[string]time.Duration, len(Steps)),
		},
	}

	log.Info().
		Str("scan_id", s.result.ScanID).
		Int("snapshots", len(batch.Snapshots)).
		Str("category", string(category)).
		Msg("Starting scan pipeline")

	steps := []struct {
		name string
		fn   func(ctx context.Context, s *scan) error
	}{
		{StepRegime, p.regimeStep},
		{StepScore, p.scoreStep},
		{StepGates, p.gatesStep},
		{StepRank, p.rankStep},
	}

	for _, step := range steps {
		stepStart := time.Now()
		if p.progress != nil {
			p.progress.StartStep(step.name)
		}

		err := step.fn(ctx, s)
		stepDuration := time.Since(stepStart)
		s.result.StepDurations[step.name] = stepDuration

		if p.observer != nil {
			p.observer.ObserveStep(step.name, stepDuration, err)
		}
		if p.progress != nil {
			p.progress.CompleteStep()
		}

		if err != nil {
			if p.progress != nil {
				p.progress.Fail(err.Error())
			}
			log.Error().
				Str("step", step.name).
				Err(err).
				Dur("step_duration", stepDuration).
				Msg("Pipeline step failed")
			return nil, fmt.Errorf("pipeline failed at step %s: %w", step.name, err)
		}

		log.Debug().
			Str("step", step.name).
			Dur("duration", stepDuration).
			Msg("Pipeline step completed")
	}

	res := s.result
	res.TotalDuration = time.Since(startTime)
	if len(res.Candidates) == 0 {
		res.Outcome = OutcomeNoOpportunities
	} else {
		res.Outcome = OutcomeOpportunities
	}

	if p.progress != nil {
		p.progress.Finish()
	}
	if p.observer != nil {
		p.observer.ObserveScan(res.Analyzed, res.Eligible, len(res.WashSuspects))
	}

	log.Info().
		Str("scan_id", res.ScanID).
		Int("analyzed", res.Analyzed).
		Int("eligible", res.Eligible).
		Int("ranked", len(res.Candidates)).
		Int("wash_suspects", len(res.WashSuspects)).
		Str("outcome", string(res.Outcome)).
		Dur("total_duration", res.TotalDuration).
		Msg("Scan pipeline completed")

	return res, nil
}

// regimeStep classifies the BTC reference and selects category members
func (p *Pipeline) regimeStep(ctx context.Context, s *scan) error {
	s.result.BTCRegime = p.analyzer.Regime(s.batch.BTC)
	if s.batch.BTC == nil {
		log.Warn().Msg("No BTC reference in batch, correlation scores stay neutral")
	}

	s.members = make([]market.CoinSnapshot, 0, len(s.batch.Snapshots))
	for _, snap := range s.batch.Snapshots {
		if snap.InCategory(s.category) {
			s.members = append(s.members, snap)
		}
	}
	s.result.Analyzed = len(s.members)
	return ctx.Err()
}

// scoreStep evaluates every member in parallel; results land at their index
func (p *Pipeline) scoreStep(ctx context.Context, s *scan) error {
	s.evals = make([]evaluation, len(s.members))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)
	for i := range s.members {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.evals[i] = p.evaluate(s.members[i], s.batch.BTC, s.category)
			return nil
		})
	}
	return g.Wait()
}

// evaluate runs the per-coin chain. It reads only the snapshot and the shared
// BTC reference.
func (p *Pipeline) evaluate(snap market.CoinSnapshot, btc *market.CoinSnapshot, category market.Category) evaluation {
	ind := p.engine.Compute(snap)
	washResult := p.detector.Detect(snap)
	corr := p.analyzer.AnalyzeSnapshot(snap, btc)

	composite := p.scorer.Calculate(scoring.Input{
		Snapshot:       snap,
		Indicators:     ind,
		Correlation:    corr.Score,
		WashConfidence: washResult.Confidence,
	})

	plan := p.planner.Plan(snap)
	pos := p.sizer.Size(composite.Score, plan.TargetPct, plan.StopPct)

	gate := p.policy.Evaluate(gates.Input{
		Snapshot:       snap,
		Score:          composite.Score,
		WashConfidence: washResult.Confidence,
	}, category)

	return evaluation{
		gate: gate,
		candidate: ScoredCandidate{
			CoinSnapshot:    snap,
			Score:           composite.Score,
			RawScore:        composite.Raw,
			Factors:         composite.Factors,
			Indicators:      ind,
			Wash:            washResult,
			Correlation:     corr,
			Volatility:      plan.Volatility,
			TargetPct:       plan.TargetPct,
			StopPct:         plan.StopPct,
			Timeframe:       plan.Timeframe,
			TakeProfit:      plan.TakeProfit,
			StopLoss:        plan.StopLoss,
			PositionSizePct: pos.PositionPct,
			WinProbability:  pos.WinProbability,
			RewardRisk:      pos.RewardRisk,
			RiskLevel:       market.RiskLevelFor(composite.Factors.MarketCapRisk),
			Tier:            market.TierFor(snap.MarketCap),
			Categories:      snap.Categories(),
			InfoURL:         snap.InfoURL(),
		},
	}
}

// gatesStep keeps eligible candidates and collects wash suspects
func (p *Pipeline) gatesStep(ctx context.Context, s *scan) error {
	for _, e := range s.evals {
		c := e.candidate
		if c.Wash.Suspicious {
			s.result.WashSuspects = append(s.result.WashSuspects, WashSuspect{
				Symbol:           c.Symbol,
				Name:             c.Name,
				MarketCap:        c.MarketCap,
				Volume24h:        c.Volume24h,
				VolumeChange24h:  c.VolumeChange24h,
				PercentChange24h: c.PercentChange24h,
				Wash:             c.Wash,
			})
		}
		if e.gate.Passed {
			s.result.Candidates = append(s.result.Candidates, c)
			continue
		}
		log.Debug().
			Str("symbol", c.Symbol).
			Float64("score", c.Score).
			Strs("reasons", e.gate.FailureReasons).
			Msg("Candidate rejected by entry gates")
	}
	s.result.Eligible = len(s.result.Candidates)

	sort.SliceStable(s.result.WashSuspects, func(i, j int) bool {
		a, b := s.result.WashSuspects[i], s.result.WashSuspects[j]
		if a.Wash.Confidence != b.Wash.Confidence {
			return a.Wash.Confidence > b.Wash.Confidence
		}
		return a.Symbol < b.Symbol
	})
	return ctx.Err()
}

func (p *Pipeline) rankStep(ctx context.Context, s *scan) error {
	s.result.Candidates = gates.Rank(s.result.Candidates, rankKey, p.policy.Config().TopN)
	return ctx.Err()
}

func rankKey(c ScoredCandidate) gates.RankKey {
	return gates.RankKey{
		Symbol:          c.Symbol,
		Score:           c.Score,
		VolumeChange24h: c.VolumeChange24h,
		Tier:            c.Tier,
	}
}

// Evaluate explains the gate decision for a single snapshot without ranking
func (p *Pipeline) Evaluate(snap market.CoinSnapshot, btc *market.CoinSnapshot, category market.Category) (ScoredCandidate, *gates.EntryGateResult) {
	e := p.evaluate(snap, btc, category)
	return e.candidate, e.gate
}
