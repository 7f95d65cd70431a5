package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/application/scan"
	"github.com/sawpanic/cadvi/internal/backtest/montecarlo"
	"github.com/sawpanic/cadvi/internal/config"
	"github.com/sawpanic/cadvi/internal/domain/market"
	applog "github.com/sawpanic/cadvi/internal/log"
	"github.com/sawpanic/cadvi/internal/providers/coinmarketcap"
	"github.com/sawpanic/cadvi/internal/report"
	"github.com/sawpanic/cadvi/internal/telemetry/metrics"
)

// app carries the state every command shares after flag parsing
type app struct {
	cfg     *config.Config
	metrics *metrics.Registry
}

func (a *app) init(cmd *cobra.Command) error {
	fs := cmd.Flags()
	path, _ := fs.GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if level, _ := fs.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := fs.GetString("log-format"); format != "" {
		cfg.Log.Format = applog.Format(format)
	}
	if err := applog.Setup(cfg.Log, os.Stderr); err != nil {
		return err
	}
	if noColor, _ := fs.GetBool("no-color"); noColor {
		color.NoColor = true
	}

	a.cfg = cfg
	a.metrics = metrics.NewRegistry()
	return nil
}

// pipelineConfig copies the scan config with per-command gate overrides
func (a *app) pipelineConfig(top int, minScore float64) *pipeline.Config {
	cfg := *a.cfg.Scan
	gates := *cfg.Gates
	if top > 0 {
		gates.TopN = top
	}
	if minScore > 0 {
		gates.MinCompositeScore = minScore
	}
	cfg.Gates = &gates
	return &cfg
}

// liveSource builds the CoinMarketCap client
func (a *app) liveSource() (scan.Source, error) {
	client, err := coinmarketcap.NewClient(a.cfg.Provider, coinmarketcap.WithObserver(a.metrics))
	if errors.Is(err, coinmarketcap.ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w: set %s in the environment or a .env file", err, config.EnvAPIKey)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a *app) service(source scan.Source, cfg *pipeline.Config, progress io.Writer) (*scan.Service, error) {
	opts := []pipeline.Option{pipeline.WithObserver(a.metrics)}
	if progress != nil {
		opts = append(opts, pipeline.WithProgress(applog.NewStepLogger(appName, pipeline.Steps, progress)))
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return scan.NewService(source, market.NewNormalizer(a.cfg.Universe), p, a.cfg.ListingLimit), nil
}

// simulationConfig applies --runs, --trades and --seed to the config section
func (a *app) simulationConfig(cmd *cobra.Command) (*montecarlo.Config, error) {
	cfg := *a.cfg.Simulation
	fs := cmd.Flags()

	if runs, _ := fs.GetInt("runs"); runs > 0 {
		cfg.Runs = runs
	}
	if trades, _ := fs.GetInt("trades"); trades > 0 {
		cfg.TradesPerRun = trades
	}
	if fs.Changed("seed") {
		seed, err := fs.GetUint64("seed")
		if err != nil {
			return nil, err
		}
		return cfg.WithSeed(seed), nil
	}
	return &cfg, nil
}

// runScan executes one scan with the given source and renders it
func (a *app) runScan(cmd *cobra.Command, source scan.Source, opts scanOptions) error {
	svc, err := a.service(source, a.pipelineConfig(opts.top, opts.minScore), progressWriter(opts))
	if err != nil {
		return err
	}

	result, err := svc.Scan(cmd.Context(), opts.category, opts.limit)
	if err != nil {
		return err
	}
	a.metrics.SetBTCRegime(int(result.BTCRegime))

	return a.render(cmd, result, opts)
}

// progressWriter keeps the bar off machine-readable output
func progressWriter(opts scanOptions) io.Writer {
	if opts.asJSON {
		return nil
	}
	return os.Stderr
}

func (a *app) render(cmd *cobra.Command, result *pipeline.Result, opts scanOptions) error {
	out := cmd.OutOrStdout()

	if opts.csvPath != "" {
		if err := writeCSVFile(opts.csvPath, result.Candidates); err != nil {
			return err
		}
		log.Info().Str("path", opts.csvPath).Int("rows", len(result.Candidates)).Msg("Candidates exported")
	}

	var sim *montecarlo.Report
	if opts.monteCarlo {
		var err error
		if sim, err = a.simulate(cmd, result); err != nil {
			return err
		}
	}

	if opts.asJSON {
		payload := struct {
			*pipeline.Result
			Simulation *montecarlo.Report `json:"simulation,omitempty"`
		}{result, sim}
		return writeJSON(out, payload)
	}

	printer := report.NewPrinter(out, report.WithVerbose(opts.verbose))
	printer.Scan(result)
	if opts.washReport {
		printer.WashSuspects(result.WashSuspects, 10)
	}
	if sim != nil {
		printer.Simulation(sim)
	}
	return nil
}

// simulate runs the Monte Carlo simulator over the ranked candidates; nil
// means there was nothing to simulate.
func (a *app) simulate(cmd *cobra.Command, result *pipeline.Result) (*montecarlo.Report, error) {
	trades := montecarlo.FromCandidates(result.Candidates)
	if len(trades) == 0 {
		log.Warn().Msg("No ranked candidates, skipping simulation")
		return nil, nil
	}

	cfg, err := a.simulationConfig(cmd)
	if err != nil {
		return nil, err
	}
	sim, err := montecarlo.NewSimulator().Run(cmd.Context(), trades, cfg)
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	a.metrics.ObserveSimulation(len(sim.Runs), sim.Aggregate.ProfitableFraction)
	return sim, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSVFile(path string, candidates []pipeline.ScoredCandidate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	if err := report.WriteCSV(f, candidates); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
