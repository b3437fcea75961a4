// Package sandbox serves an in-memory stand-in for the Daleel backend.
//
// It implements the four endpoints the ledger client uses, computes tax as a
// flat rate on quarterly revenue, and can switch off the quarterly
// aggregation endpoint to exercise the client's fallback path.
package sandbox

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"daleel/internal/api"
	"daleel/internal/logger"
	"daleel/pkg/models"
)

// DefaultTaxRate is the Egyptian standard VAT rate.
var DefaultTaxRate = decimal.RequireFromString("0.14")

// Options tune the sandbox behavior.
type Options struct {
	TaxRate          decimal.Decimal
	DisableQuarterly bool   // answer 503 on the quarterly endpoint
	BareInvoiceList  bool   // answer the flat list as a bare array
	Token            string // when set, require this bearer token
}

type handler struct {
	store *Store
	opts  Options
	now   func() time.Time
}

// NewRouter builds the gin engine serving store.
func NewRouter(store *Store, opts Options) *gin.Engine {
	if opts.TaxRate.IsZero() {
		opts.TaxRate = DefaultTaxRate
	}
	h := &handler{store: store, opts: opts, now: time.Now}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	if opts.Token != "" {
		router.Use(bearerAuth(opts.Token))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "daleel-sandbox"})
	})
	router.POST(api.PathQuarterlyInvoices, h.quarterlyInvoices)
	router.POST(api.PathBusinessInvoices, h.businessInvoices)
	router.POST(api.PathAddInvoice, h.addInvoice)
	router.POST(api.PathCalculateTax, h.calculateTax)

	return router
}

type businessYear struct {
	BusinessID string `json:"businessId"`
	Year       int    `json:"year"`
}

func (h *handler) bindBusinessYear(c *gin.Context) (businessYear, bool) {
	var req businessYear
	if err := c.ShouldBindJSON(&req); err != nil || req.BusinessID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "businessId is required"})
		return req, false
	}
	if req.Year == 0 {
		req.Year = h.now().Year()
	}
	return req, true
}

func (h *handler) quarterlyInvoices(c *gin.Context) {
	if h.opts.DisableQuarterly {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "quarterly aggregation unavailable"})
		return
	}
	req, ok := h.bindBusinessYear(c)
	if !ok {
		return
	}

	quarters, grand := h.store.quarterData(req.BusinessID, req.Year)
	c.JSON(http.StatusOK, models.QuarterlyInvoices{
		QuarterlyData: quarters[:],
		GrandTotal:    models.NewAmount(grand),
	})
}

func (h *handler) businessInvoices(c *gin.Context) {
	var req struct {
		BusinessID string `json:"businessId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.BusinessID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "businessId is required"})
		return
	}

	invoices := h.store.List(req.BusinessID)
	if h.opts.BareInvoiceList {
		c.JSON(http.StatusOK, invoices)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *handler) addInvoice(c *gin.Context) {
	var req models.NewInvoice
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if msg := validateNewInvoice(req); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	created, err := h.store.Add(req)
	if errors.Is(err, ErrDuplicateInvoice) {
		c.JSON(http.StatusConflict, gin.H{"message": "Invoice already exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func validateNewInvoice(req models.NewInvoice) string {
	switch {
	case req.BusinessID == "":
		return "businessId is required"
	case strings.TrimSpace(req.InvoiceNumber) == "":
		return "invoiceNumber is required"
	case strings.TrimSpace(req.IssuerName) == "":
		return "issuerName is required"
	case strings.TrimSpace(req.ReceiverName) == "":
		return "receiverName is required"
	case !req.TotalAmount.Valid || !req.TotalAmount.Value.IsPositive():
		return "totalAmount must be greater than 0"
	case req.InvoiceDate.IsZero():
		return "invoiceDate is required"
	}
	return ""
}

func (h *handler) calculateTax(c *gin.Context) {
	req, ok := h.bindBusinessYear(c)
	if !ok {
		return
	}

	quarters, _ := h.store.quarterData(req.BusinessID, req.Year)
	resp := models.TaxCalculation{QuarterlyTaxes: make([]models.QuarterlyTaxData, 0, len(quarters))}
	total := decimal.Zero
	for _, q := range quarters {
		revenue := q.TotalAmount.OrZero()
		tax := revenue.Mul(h.opts.TaxRate).Round(2)
		total = total.Add(tax)
		resp.QuarterlyTaxes = append(resp.QuarterlyTaxes, models.QuarterlyTaxData{
			Quarter:      q.Quarter,
			TotalRevenue: models.NewAmount(revenue),
			TaxAmount:    models.NewAmount(tax),
		})
	}
	resp.TotalTaxForYear = models.NewAmount(total)
	c.JSON(http.StatusOK, resp)
}

// requestLogger logs every request with a request id
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		log := logger.WithRequestID(requestID)
		log.Info().
			Str("component", "sandbox").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Sandbox request")
	}
}

func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		c.Next()
	}
}
