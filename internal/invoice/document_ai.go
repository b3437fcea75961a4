// Package invoice prefills the add-invoice form from a PDF using Google
// Document AI's invoice parser. The PDF never reaches the Daleel backend.
package invoice

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"daleel/internal/config"
	"daleel/internal/ledger"
	"daleel/internal/logger"
	"daleel/pkg/models"
)

const (
	// MaxDocumentSizeBytes is the maximum document size for processing (20MB)
	MaxDocumentSizeBytes = 20 * 1024 * 1024

	// DefaultTimeout bounds one ProcessDocument call.
	DefaultTimeout = 60 * time.Second
)

// DocumentAIConfig holds the Document AI processor settings.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	CredentialsFile  string
	CredentialsJSON  string
	Timeout          time.Duration
}

// ConfigFrom extracts the Document AI settings from the application config.
func ConfigFrom(cfg *config.Config) DocumentAIConfig {
	return DocumentAIConfig{
		ProjectID:        cfg.GoogleCloudProject,
		Location:         cfg.GoogleCloudLocation,
		ProcessorID:      cfg.DocumentAIProcessorID,
		ProcessorVersion: cfg.DocumentAIProcessorVersion,
		CredentialsFile:  cfg.GoogleCredentialsFile,
		CredentialsJSON:  cfg.GoogleCredentialsJSON,
		Timeout:          DefaultTimeout,
	}
}

// ProcessorName returns the full resource name of the processor.
func (c DocumentAIConfig) ProcessorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
	if c.ProcessorVersion != "" {
		name += "/processorVersions/" + c.ProcessorVersion
	}
	return name
}

// DocumentAIPrefiller turns invoice PDFs into add-invoice form values.
type DocumentAIPrefiller struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIPrefiller creates a prefiller with a regional Document AI client.
func NewDocumentAIPrefiller(ctx context.Context, cfg DocumentAIConfig) (*DocumentAIPrefiller, error) {
	const op = "NewDocumentAIPrefiller"

	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, wrapPrefillError(op, ErrInvalidConfiguration, "project and processor id are required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var clientOptions []option.ClientOption
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if cfg.CredentialsJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else if cfg.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, wrapPrefillError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return &DocumentAIPrefiller{
		client: client,
		config: cfg,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// Prefill reads a PDF and returns the form values Document AI found in it.
// Fields it could not find are left empty for the user to fill in.
func (p *DocumentAIPrefiller) Prefill(ctx context.Context, pdf io.Reader) (ledger.InvoiceForm, error) {
	const op = "Prefill"

	content, err := ReadPDF(pdf)
	if err != nil {
		return ledger.InvoiceForm{}, wrapPrefillError(op, err, "")
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return ledger.InvoiceForm{}, p.handleProcessingError(op, err)
	}
	if resp.GetDocument() == nil {
		return ledger.InvoiceForm{}, wrapPrefillError(op, ErrProcessingFailed, "no document in response")
	}

	form, confidence := FormFromDocument(resp.GetDocument(), p.log)
	if form.IsEmpty() {
		return form, wrapPrefillError(op, ErrNothingExtracted, fmt.Sprintf("%d entities", len(resp.GetDocument().GetEntities())))
	}

	p.log.Info().
		Str("invoice_number", form.InvoiceNumber).
		Str("total_amount", form.TotalAmount).
		Str("invoice_date", form.InvoiceDate).
		Interface("confidence", confidence).
		Msg("Document AI prefill completed")

	return form, nil
}

// ReadPDF reads a document and checks its size and PDF header.
func ReadPDF(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, MaxDocumentSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF data: %w", err)
	}
	if len(content) > MaxDocumentSizeBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, MaxDocumentSizeBytes)
	}
	if len(content) < 4 || string(content[:4]) != "%PDF" {
		return nil, fmt.Errorf("%w: missing PDF header", ErrInvalidPDF)
	}
	return content, nil
}

// handleProcessingError converts Document AI errors to prefill errors.
func (p *DocumentAIPrefiller) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PermissionDenied") || strings.Contains(errStr, "PERMISSION_DENIED"):
		return wrapPrefillError(op, ErrInvalidCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "ResourceExhausted") || strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return wrapPrefillError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NotFound") || strings.Contains(errStr, "NOT_FOUND"):
		return wrapPrefillError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "InvalidArgument") || strings.Contains(errStr, "INVALID_ARGUMENT"):
		return wrapPrefillError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return wrapPrefillError(op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "Canceled") || strings.Contains(errStr, "context canceled"):
		return wrapPrefillError(op, ErrContextCanceled, "processing was canceled")
	default:
		return wrapPrefillError(op, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (p *DocumentAIPrefiller) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// FormFromDocument maps the invoice parser's entities onto the form. When an
// entity type occurs more than once the most confident value wins. The
// returned map holds the confidence of every field that was filled.
func FormFromDocument(doc *documentaipb.Document, log zerolog.Logger) (ledger.InvoiceForm, map[string]float32) {
	var form ledger.InvoiceForm
	confidence := make(map[string]float32)

	set := func(field, value string, conf float32) {
		if value == "" {
			return
		}
		if prev, ok := confidence[field]; ok && prev >= conf {
			return
		}
		_ = form.Set(field, value)
		confidence[field] = conf
	}

	for _, entity := range doc.GetEntities() {
		text := strings.TrimSpace(entity.GetMentionText())
		conf := entity.GetConfidence()

		log.Debug().
			Str("entity_type", entity.GetType()).
			Str("value", text).
			Float32("confidence", conf).
			Msg("Processing Document AI entity")

		switch entity.GetType() {
		case "invoice_id", "invoice_number":
			set(ledger.FieldInvoiceNumber, text, conf)
		case "supplier_name", "vendor_name":
			set(ledger.FieldIssuerName, text, conf)
		case "receiver_name", "customer_name", "buyer_name":
			set(ledger.FieldReceiverName, text, conf)
		case "total_amount", "gross_amount":
			amount, err := extractMoney(entity)
			if err != nil {
				log.Warn().Err(err).Str("raw_value", text).Msg("Failed to extract total amount from Document AI")
				continue
			}
			set(ledger.FieldTotalAmount, amount.StringFixed(2), conf)
		case "invoice_date":
			date, err := extractDate(entity)
			if err != nil {
				log.Warn().Err(err).Str("raw_value", text).Msg("Failed to extract invoice date from Document AI")
				continue
			}
			set(ledger.FieldInvoiceDate, date.Format(models.DateLayout), conf)
		}
	}

	return form, confidence
}

// extractMoney prefers the normalized money value over the mention text.
func extractMoney(entity *documentaipb.Document_Entity) (decimal.Decimal, error) {
	if money := entity.GetNormalizedValue().GetMoneyValue(); money != nil {
		return decimal.New(money.GetUnits(), 0).Add(decimal.New(int64(money.GetNanos()), -9)), nil
	}
	return ParseAmount(entity.GetMentionText())
}

// extractDate prefers the normalized date value over the mention text.
func extractDate(entity *documentaipb.Document_Entity) (time.Time, error) {
	if d := entity.GetNormalizedValue().GetDateValue(); d != nil && d.GetYear() > 0 {
		return time.Date(int(d.GetYear()), time.Month(d.GetMonth()), int(d.GetDay()), 0, 0, 0, 0, time.UTC), nil
	}
	return ParseDate(entity.GetMentionText())
}
