package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"daleel/internal/checkout"
	"daleel/internal/config"
	"daleel/internal/invoice"
	"daleel/internal/ledger"
	"daleel/internal/logger"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Add invoices to a business ledger",
}

var invoiceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an invoice and show the refreshed quarter",
	Long: `Validate and submit one invoice to the Daleel backend, then reload the
ledger and tax figures.

With --from-pdf the form is first filled from the PDF using Google Document
AI's invoice parser. Flags given explicitly override the extracted values.
The PDF itself is never uploaded to the Daleel backend.

Document AI settings (only for --from-pdf):
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  GOOGLE_CLOUD_LOCATION - Processing location (us, eu, etc.)
  DOCUMENT_AI_PROCESSOR_ID - Your Document AI invoice processor ID`,
	Example: `  daleel invoice add -b 42 --number INV-7 --issuer "Cairo Supplies" \
    --receiver "Nile Traders" --amount 1250.75 --date 2024-08-14

  # Fill the form from a PDF, correcting the amount
  daleel invoice add -b 42 --from-pdf invoice.pdf --amount 1300`,
	RunE: runInvoiceAdd,
}

var invoicePrefillCmd = &cobra.Command{
	Use:   "prefill [pdf-file]",
	Short: "Print the add-invoice form values Document AI extracts from a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicePrefill,
}

func init() {
	rootCmd.AddCommand(invoiceCmd)
	invoiceCmd.AddCommand(invoiceAddCmd, invoicePrefillCmd)

	addBusinessFlags(invoiceAddCmd)
	invoiceAddCmd.Flags().String("number", "", "Invoice number")
	invoiceAddCmd.Flags().String("issuer", "", "Issuer name")
	invoiceAddCmd.Flags().String("receiver", "", "Receiver name")
	invoiceAddCmd.Flags().String("amount", "", "Total amount in EGP")
	invoiceAddCmd.Flags().String("date", "", "Invoice date (YYYY-MM-DD)")
	invoiceAddCmd.Flags().String("from-pdf", "", "Prefill the form from this invoice PDF")
	invoiceAddCmd.Flags().Duration("timeout", 2*time.Minute, "Give up after this long")

	invoicePrefillCmd.Flags().Duration("timeout", 2*time.Minute, "Processing timeout")
}

func formFromFlags(cmd *cobra.Command) ledger.InvoiceForm {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return ledger.InvoiceForm{
		InvoiceNumber: get("number"),
		IssuerName:    get("issuer"),
		ReceiverName:  get("receiver"),
		TotalAmount:   get("amount"),
		InvoiceDate:   get("date"),
	}
}

func runInvoiceAdd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice-cmd")

	timeout, _ := cmd.Flags().GetDuration("timeout")
	pdfPath, _ := cmd.Flags().GetString("from-pdf")

	ctx, cancel := createContext(timeout, log)
	defer cancel()

	form := formFromFlags(cmd)
	if pdfPath != "" {
		prefilled, err := prefillFromPDF(ctx, pdfPath, log)
		if err != nil {
			return err
		}
		prefilled.Merge(form)
		form = prefilled
	}

	view, err := mountLedger(ctx, cmd, checkout.NewJSONWriter(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer view.Unmount()

	if _, err := waitLoaded(ctx, view); err != nil {
		return err
	}
	if err := view.SetForm(form); err != nil {
		return err
	}
	if err := view.Submit(); err != nil {
		return err
	}
	state, err := waitLoaded(ctx, view)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case state.Validation != nil:
		renderForm(out, state)
		return fmt.Errorf("invoice not submitted: %s", state.Validation.Message)
	case state.SubmitError != "":
		renderForm(out, state)
		return errors.New(state.SubmitError)
	}

	fmt.Fprintln(out, state.Success)
	renderOverview(out, state)
	return nil
}

func runInvoicePrefill(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice-cmd")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := createContext(timeout, log)
	defer cancel()

	form, err := prefillFromPDF(ctx, args[0], log)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func prefillFromPDF(ctx context.Context, pdfPath string, log zerolog.Logger) (ledger.InvoiceForm, error) {
	if err := validateInvoicePDF(pdfPath, log); err != nil {
		return ledger.InvoiceForm{}, err
	}

	cfg, err := config.Load()
	if err != nil {
		return ledger.InvoiceForm{}, err
	}
	if err := cfg.RequireDocumentAI(); err != nil {
		return ledger.InvoiceForm{}, fmt.Errorf("invalid Document AI configuration. Please check your .env file:\n"+
			"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
			"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
			"  DOCUMENT_AI_PROCESSOR_ID - your Document AI processor ID\n"+
			"Original error: %w", err)
	}

	prefiller, err := invoice.NewDocumentAIPrefiller(ctx, invoice.ConfigFrom(cfg))
	if err != nil {
		return ledger.InvoiceForm{}, handlePrefillError(err, log)
	}
	defer func() {
		if closeErr := prefiller.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close Document AI client")
		}
	}()

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		return ledger.InvoiceForm{}, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer pdfFile.Close()

	log.Info().Str("file", pdfPath).Msg("Prefilling invoice form with Document AI")

	form, err := prefiller.Prefill(ctx, pdfFile)
	if err != nil {
		return ledger.InvoiceForm{}, handlePrefillError(err, log)
	}
	return form, nil
}

// validateInvoicePDF checks the file before any Document AI call.
func validateInvoicePDF(pdfPath string, log zerolog.Logger) error {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("invoice PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return fmt.Errorf("path is not a regular file: %s", pdfPath)
	}
	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().Str("file", pdfPath).Msg("File does not have .pdf extension")
	}
	if fileInfo.Size() == 0 {
		return fmt.Errorf("PDF file is empty: %s", pdfPath)
	}
	if fileInfo.Size() > invoice.MaxDocumentSizeBytes {
		return fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), invoice.MaxDocumentSizeBytes)
	}
	return nil
}

// handlePrefillError provides user-friendly messages for prefill failures
func handlePrefillError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice prefill failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("invoice prefill timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled), errors.Is(err, invoice.ErrContextCanceled):
		return fmt.Errorf("invoice prefill was canceled")
	case errors.Is(err, invoice.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, invoice.ErrDocumentTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, invoice.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Please check DOCUMENT_AI_PROCESSOR_ID")
	case errors.Is(err, invoice.ErrInvalidCredentials):
		return fmt.Errorf("permission denied. Please ensure your service account has 'Document AI API User' role")
	case errors.Is(err, invoice.ErrQuotaExceeded):
		return fmt.Errorf("Document AI API quota exceeded. Check your project quotas in Google Cloud Console")
	case errors.Is(err, invoice.ErrNothingExtracted):
		return fmt.Errorf("no invoice fields found. The PDF may not be an invoice; fill the fields with flags instead")
	default:
		return fmt.Errorf("invoice prefill failed: %w", err)
	}
}
