package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"daleel/internal/checkout"
	"daleel/internal/logger"
	"daleel/pkg/models"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show a business's invoices grouped by calendar quarter",
	Long: `Load the quarterly ledger of a business from the Daleel backend.

The backend's quarterly aggregation is used when available; otherwise the
flat invoice list is fetched and grouped by invoice date. Tax amounts are
shown obscured; use "daleel tax" to accept the service fee and pay.`,
	Example: `  # Current year overview
  daleel ledger --business 42

  # Invoices of one quarter
  daleel ledger --business 42 --year 2024 --quarter Q3

  # Machine readable ledger (tax figures are not included)
  daleel ledger --business 42 --json`,
	RunE: runLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)

	addBusinessFlags(ledgerCmd)
	ledgerCmd.Flags().StringP("quarter", "q", "", "Only list the invoices of this quarter (1-4 or Q1-Q4)")
	ledgerCmd.Flags().Bool("json", false, "Print the ledger as JSON")
	ledgerCmd.Flags().Duration("timeout", 0, "Give up after this long (default: no limit)")
}

func runLedger(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ledger-cmd")

	quarterFlag, _ := cmd.Flags().GetString("quarter")
	asJSON, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var quarter models.Quarter
	if quarterFlag != "" {
		q, err := models.ParseQuarter(quarterFlag)
		if err != nil {
			return err
		}
		quarter = q
	}

	ctx, cancel := createContext(timeout, log)
	defer cancel()

	view, err := mountLedger(ctx, cmd, checkout.NewJSONWriter(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer view.Unmount()

	state, err := waitLoaded(ctx, view)
	if err != nil {
		return err
	}

	log.Info().
		Str("business_id", state.Business.ID).
		Int("year", state.Year).
		Int("invoices", state.Ledger.InvoiceCount()).
		Str("source", string(state.Ledger.Source)).
		Msg("Ledger loaded")

	out := cmd.OutOrStdout()
	if asJSON {
		var payload any = state.Ledger
		if quarter.Valid() {
			payload = state.Ledger.Bucket(quarter)
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if quarter.Valid() {
		renderQuarter(out, state.Ledger.Bucket(quarter))
		return nil
	}
	renderOverview(out, state)
	return nil
}
