package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"daleel/internal/checkout"
	"daleel/internal/config"
	"daleel/internal/logger"
	"daleel/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Append a business ledger to a Google Sheet",
	Long: `Load the quarterly ledger of a business and append it to a Google Sheet:
one row per invoice, a total row per quarter and a grand total row.
Tax figures are never exported.

Required environment variables:
  GOOGLE_SHEET_URL - Google Sheets URL (or use --sheet-url)
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  daleel export --business 42 --year 2024
  daleel export --business 42 --sheet-url https://docs.google.com/spreadsheets/d/ID/edit --worksheet Ledger_2024`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	addBusinessFlags(exportCmd)
	exportCmd.Flags().String("sheet-url", "", "Google Sheets URL (default: GOOGLE_SHEET_URL)")
	exportCmd.Flags().String("worksheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	exportCmd.Flags().Duration("timeout", 0, "Give up after this long (default: no limit)")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export-cmd")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if url, _ := cmd.Flags().GetString("sheet-url"); url != "" {
		cfg.GoogleSheetURL = url
	}
	if ws, _ := cmd.Flags().GetString("worksheet"); ws != "" {
		cfg.GoogleSheetWorksheet = ws
	}
	if err := cfg.RequireSheets(); err != nil {
		return fmt.Errorf("Google Sheets not configured: %w", err)
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

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

	service, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, sheets.Credentials{
		File: cfg.GoogleCredentialsFile,
		JSON: cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		return err
	}

	rows, err := service.ExportLedger(ctx, state.Business, state.Ledger, cfg.GoogleSheetWorksheet)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d invoices (%d rows) of %d to worksheet %q\n",
		state.Ledger.InvoiceCount(), rows, state.Year, cfg.GoogleSheetWorksheet)
	return nil
}
