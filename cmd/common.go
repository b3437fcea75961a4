package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"daleel/internal/api"
	"daleel/internal/checkout"
	"daleel/internal/config"
	"daleel/internal/ledger"
	"daleel/pkg/models"
)

// addBusinessFlags registers the flags identifying the business of a ledger.
func addBusinessFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("business", "b", "", "Business ID (required)")
	cmd.Flags().String("name", "", "Business name shown to checkout")
	cmd.Flags().IntP("year", "y", 0, "Ledger year (default: DALEEL_TAX_YEAR or the current year)")
	_ = cmd.MarkFlagRequired("business")
}

func businessFromFlags(cmd *cobra.Command) models.Business {
	id, _ := cmd.Flags().GetString("business")
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = id
	}
	return models.Business{ID: id, Name: name}
}

func yearFromFlags(cmd *cobra.Command, cfg *config.Config) int {
	if year, _ := cmd.Flags().GetInt("year"); year > 0 {
		return year
	}
	return cfg.TaxYear
}

// loadAPIConfig loads the configuration and checks the backend settings.
func loadAPIConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAPI(); err != nil {
		return nil, fmt.Errorf("backend not configured: %w. Set it in your environment or .env file", err)
	}
	return cfg, nil
}

func newAPIClient(cfg *config.Config) (*api.Client, error) {
	opts := []api.Option{api.WithToken(cfg.APIToken)}
	if cfg.APITimeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.APITimeout))
	}
	client, err := api.NewClient(cfg.APIURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Daleel API client: %w", err)
	}
	return client, nil
}

// mountLedger mounts the ledger view of the business named by the command flags.
func mountLedger(ctx context.Context, cmd *cobra.Command, handoff checkout.Handoff, opts ...ledger.Option) (*ledger.View, error) {
	cfg, err := loadAPIConfig()
	if err != nil {
		return nil, err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return nil, err
	}
	if year := yearFromFlags(cmd, cfg); year > 0 {
		opts = append(opts, ledger.WithYear(year))
	}
	return ledger.Mount(ctx, businessFromFlags(cmd), client, handoff, opts...), nil
}

// waitLoaded waits until the view has no request in flight.
func waitLoaded(ctx context.Context, v *ledger.View) (ledger.State, error) {
	if err := v.WaitIdle(ctx); err != nil {
		return ledger.State{}, fmt.Errorf("ledger did not finish loading: %w", err)
	}
	s, _ := v.Snapshot()
	return s, nil
}

// createContext creates a context with timeout and signal handling.
// A zero timeout means no deadline.
func createContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
