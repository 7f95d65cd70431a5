package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/cadvi/internal/application/scan"
	"github.com/sawpanic/cadvi/internal/domain/market"
	httpapi "github.com/sawpanic/cadvi/internal/interfaces/http"
	"github.com/sawpanic/cadvi/internal/report"
)

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Fetch live listings and rank opportunities",
		Long:  "Fetches the latest CoinMarketCap listings, scores every coin and prints the candidates passing the entry gates",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readScanOptions(cmd)
			if err != nil {
				return err
			}
			source, err := a.liveSource()
			if err != nil {
				return err
			}
			return a.runScan(cmd, source, opts)
		},
	}
	cmd.Flags().AddFlagSet(scanFlags(0))
	cmd.Flags().AddFlagSet(simulationFlags())
	return cmd
}

func newOfflineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offline <listings.json>",
		Short: "Rank a saved listings snapshot without network access",
		Long:  "Reads a listings response (API envelope or bare array) from disk and runs the same scan as 'scan'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readScanOptions(cmd)
			if err != nil {
				return err
			}
			return a.runScan(cmd, scan.FileSource{Path: args[0]}, opts)
		},
	}
	cmd.Flags().AddFlagSet(scanFlags(0))
	cmd.Flags().AddFlagSet(simulationFlags())
	return cmd
}

func newQuickCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quick",
		Short: "Spot-only top picks as a limit-order list",
		Long:  "Set-and-forget mode: ranks spot coins only, keeps the top picks and prints entry and limit-sell target prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readScanOptions(cmd)
			if err != nil {
				return err
			}
			opts.category = market.CategorySpot
			if opts.minScore, err = cmd.Flags().GetFloat64("min-score"); err != nil {
				return err
			}

			var source scan.Source
			if file, _ := cmd.Flags().GetString("file"); file != "" {
				source = scan.FileSource{Path: file}
			} else if source, err = a.liveSource(); err != nil {
				return err
			}

			svc, err := a.service(source, a.pipelineConfig(opts.top, opts.minScore), progressWriter(opts))
			if err != nil {
				return err
			}
			result, err := svc.Scan(cmd.Context(), opts.category, opts.limit)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			report.NewPrinter(cmd.OutOrStdout()).Quick(result)
			return nil
		},
	}
	cmd.Flags().Int("limit", 0, "Listings to fetch (0 = listing_limit from config)")
	cmd.Flags().Int("top", 5, "Top picks to show")
	cmd.Flags().Float64("min-score", 0, "Minimum composite score (0 = config)")
	cmd.Flags().String("file", "", "Read listings from a saved JSON file instead of the API")
	cmd.Flags().Bool("json", false, "Emit JSON instead of the table")
	// readScanOptions expects these; quick always ranks spot
	cmd.Flags().String("category", "spot", "")
	_ = cmd.Flags().MarkHidden("category")
	return cmd
}

func newBacktestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Synthetic Monte Carlo simulation of the current picks",
		Long: `Ranks the current snapshot, then simulates the ranked candidates many times using
their score-derived win probabilities and target/stop levels.

This is a synthetic simulation, not a historical backtest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readScanOptions(cmd)
			if err != nil {
				return err
			}

			var source scan.Source
			if file, _ := cmd.Flags().GetString("file"); file != "" {
				source = scan.FileSource{Path: file}
			} else if source, err = a.liveSource(); err != nil {
				return err
			}

			svc, err := a.service(source, a.pipelineConfig(opts.top, 0), progressWriter(opts))
			if err != nil {
				return err
			}
			result, err := svc.Scan(cmd.Context(), opts.category, opts.limit)
			if err != nil {
				return err
			}

			sim, err := a.simulate(cmd, result)
			if err != nil {
				return err
			}
			if sim == nil {
				// Nothing ranked is an outcome, not a failure
				opts.monteCarlo = false
				return a.render(cmd, result, opts)
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), sim)
			}
			report.NewPrinter(cmd.OutOrStdout(), report.WithVerbose(opts.verbose)).Simulation(sim)
			return nil
		},
	}
	cmd.Flags().AddFlagSet(scanFlags(5))
	cmd.Flags().AddFlagSet(simulationFlags())
	cmd.Flags().String("file", "", "Read listings from a saved JSON file instead of the API")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, Prometheus metrics and live websocket updates",
		Long:  "Starts a local read-only HTTP server with /api/analyze, /api/candidates, /api/explain/{symbol}, /api/health, /metrics and /ws/candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverCfg := a.cfg.Server
			fs := cmd.Flags()
			if fs.Changed("host") {
				serverCfg.Host, _ = fs.GetString("host")
			}
			if fs.Changed("port") {
				serverCfg.Port, _ = fs.GetInt("port")
			}
			if fs.Changed("refresh") {
				serverCfg.RefreshInterval, _ = fs.GetDuration("refresh")
			}

			var source scan.Source
			var err error
			if file, _ := fs.GetString("file"); file != "" {
				source = scan.FileSource{Path: file}
			} else if source, err = a.liveSource(); err != nil {
				return err
			}

			svc, err := a.service(source, a.pipelineConfig(0, 0), nil)
			if err != nil {
				return err
			}
			server, err := httpapi.NewServer(serverCfg, svc, a.metrics, httpapi.WithVersion(version))
			if err != nil {
				return err
			}

			err = server.Run(cmd.Context())
			log.Info().Msg("HTTP server stopped")
			return err
		},
	}
	cmd.Flags().String("host", "", "Listen host (default from config)")
	cmd.Flags().Int("port", 0, "Listen port (default from config, HTTP_PORT)")
	cmd.Flags().Duration("refresh", 0, "Background rescan interval (0 disables)")
	cmd.Flags().String("file", "", "Serve a saved JSON listings file instead of the API")
	return cmd
}
