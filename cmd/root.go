package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"daleel/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "daleel",
	Short: "Daleel CLI - quarterly invoice ledger and tax checkout for small businesses",
	Long: `Daleel CLI talks to the Daleel backend to keep a business's invoices,
grouped by calendar quarter, and to start the tax payment for a quarter.

Tax amounts stay hidden until the 5% service fee is accepted; accepting
hands a payment intent to checkout.

Backend settings are read from the environment (or a .env file):
  DALEEL_API_URL     - base URL of the Daleel backend
  DALEEL_API_TOKEN   - bearer token sent with every request
  DALEEL_API_TIMEOUT - optional request timeout (e.g. 30s)
  DALEEL_TAX_YEAR    - optional default ledger year`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("Daleel CLI executed")

		fmt.Fprintln(cmd.OutOrStdout(), "Welcome to Daleel CLI!")
		fmt.Fprintln(cmd.OutOrStdout(), "Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
