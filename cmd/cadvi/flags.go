package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/cadvi/internal/config"
	"github.com/sawpanic/cadvi/internal/domain/market"
)

// globalFlags are shared by every command
func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.String("config", config.DefaultPath, "Path to the YAML config file")
	fs.String("log-level", "", "Log level override (debug|info|warn|error)")
	fs.String("log-format", "", "Log format override (auto|console|json)")
	fs.Bool("no-color", false, "Disable coloured output")
	return fs
}

// scanFlags control what a scan fetches and how it is rendered
func scanFlags(defaultTop int) *pflag.FlagSet {
	fs := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	fs.Int("limit", 0, "Listings to fetch (0 = listing_limit from config)")
	fs.Int("top", defaultTop, "Number of candidates to show (0 = top_n from config)")
	fs.String("category", "all", "Trading category (all|spot|futures|web3)")
	fs.BoolP("verbose", "v", false, "Show factor, indicator and sizing detail per candidate")
	fs.Bool("wash-report", false, "Print the wash-trading suspects")
	fs.Bool("json", false, "Emit JSON instead of tables")
	fs.String("csv", "", "Also export candidates to this CSV file")
	fs.Bool("monte-carlo", false, "Run a synthetic Monte Carlo simulation on the ranked candidates")
	return fs
}

// simulationFlags override the simulation section of the config
func simulationFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("simulation", pflag.ContinueOnError)
	fs.Int("runs", 0, "Simulated runs (0 = config)")
	fs.Int("trades", 0, "Trades per run (0 = one pass over the candidates)")
	fs.Uint64("seed", 0, "Seed for a reproducible simulation (unset = random)")
	return fs
}

type scanOptions struct {
	limit      int
	top        int
	category   market.Category
	minScore   float64
	verbose    bool
	washReport bool
	asJSON     bool
	csvPath    string
	monteCarlo bool
}

func readScanOptions(cmd *cobra.Command) (scanOptions, error) {
	fs := cmd.Flags()
	var opts scanOptions
	var err error

	if opts.limit, err = fs.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.top, err = fs.GetInt("top"); err != nil {
		return opts, err
	}
	if opts.limit < 0 || opts.top < 0 {
		return opts, fmt.Errorf("--limit and --top must be non-negative")
	}

	raw, err := fs.GetString("category")
	if err != nil {
		return opts, err
	}
	var ok bool
	if opts.category, ok = market.ParseCategory(raw); !ok {
		return opts, fmt.Errorf("unknown category %q (want all, spot, futures or web3)", raw)
	}

	opts.verbose, _ = fs.GetBool("verbose")
	opts.washReport, _ = fs.GetBool("wash-report")
	opts.asJSON, _ = fs.GetBool("json")
	opts.csvPath, _ = fs.GetString("csv")
	opts.monteCarlo, _ = fs.GetBool("monte-carlo")
	return opts, nil
}
