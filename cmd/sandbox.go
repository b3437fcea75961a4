package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"daleel/internal/logger"
	"daleel/internal/sandbox"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Serve an in-memory Daleel backend for local development",
	Long: `Start an HTTP server implementing the invoice and tax endpoints of the
Daleel backend over an in-memory store. Tax is computed as a flat rate on each
quarter's revenue. Nothing is persisted.

Point the CLI at it with DALEEL_API_URL=http://localhost:8080.`,
	Example: `  daleel sandbox
  daleel sandbox --addr :9090 --tax-rate 0.1 --no-quarterly`,
	RunE: runSandbox,
}

func init() {
	rootCmd.AddCommand(sandboxCmd)

	sandboxCmd.Flags().String("addr", ":8080", "Listen address")
	sandboxCmd.Flags().String("tax-rate", sandbox.DefaultTaxRate.String(), "Tax rate applied to quarterly revenue")
	sandboxCmd.Flags().Bool("no-quarterly", false, "Answer 503 on the quarterly endpoint to exercise the fallback")
	sandboxCmd.Flags().Bool("bare-list", false, "Answer the invoice list as a bare JSON array")
	sandboxCmd.Flags().String("token", "", "Require this bearer token")
}

func runSandbox(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sandbox-cmd")

	addr, _ := cmd.Flags().GetString("addr")
	rateFlag, _ := cmd.Flags().GetString("tax-rate")
	noQuarterly, _ := cmd.Flags().GetBool("no-quarterly")
	bareList, _ := cmd.Flags().GetBool("bare-list")
	token, _ := cmd.Flags().GetString("token")

	rate, err := decimal.NewFromString(rateFlag)
	if err != nil || rate.IsNegative() {
		return fmt.Errorf("invalid --tax-rate %q: expected a non-negative decimal", rateFlag)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: addr,
		Handler: sandbox.NewRouter(sandbox.NewStore(), sandbox.Options{
			TaxRate:          rate,
			DisableQuarterly: noQuarterly,
			BareInvoiceList:  bareList,
			Token:            token,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := createContext(0, log)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("tax_rate", rate.String()).
			Bool("quarterly_disabled", noQuarterly).
			Msg("Sandbox backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sandbox server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("sandbox shutdown failed: %w", err)
	}
	log.Info().Msg("Sandbox backend stopped")
	return nil
}
