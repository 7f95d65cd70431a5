package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "cadvi"
	version = "v1.0.0"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Snapshot-based crypto opportunity ranker",
		Version: version,
		Long: `cadvi ranks cryptocurrencies from a single market snapshot.

Each coin is scored from estimated technical indicators, BTC correlation,
momentum and volume, screened for wash trading, filtered through hard entry
gates and sized with a fractional Kelly criterion.

High risk. Not financial advice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().AddFlagSet(globalFlags())

	rootCmd.AddCommand(
		newScanCmd(a),
		newQuickCmd(a),
		newBacktestCmd(a),
		newServeCmd(a),
		newOfflineCmd(a),
	)
	return rootCmd
}
