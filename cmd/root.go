// Package cmd defines the relocal command line: crawl the listing into the
// store, or serve the stored plays over HTTP.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Re-Local/Backend/config"
	"github.com/Re-Local/Backend/storage"
	"github.com/Re-Local/Backend/utils"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "relocal",
		Short: "Theater listing crawler and read API",
		Long: `relocal collects play listings from timeticket.co.kr, resolves each
detail page to a venue, address and coordinates, and keeps the result in
PostgreSQL for the read API.`,
		SilenceUsage: true,

		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.cfg = config.Load()
			a.logger = utils.NewLogger(a.cfg.LogDev)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}

	cmd.AddCommand(newCrawlCmd(a))
	cmd.AddCommand(newServeCmd(a))
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// openStore returns the store selected by STORAGE_DRIVER.
func (a *app) openStore(ctx context.Context) (storage.PlayStore, error) {
	switch a.cfg.StorageDriver {
	case "memory":
		a.logger.Warn("[store] Using in-memory store, nothing will be persisted")
		return storage.NewMemoryStore(), nil
	case "postgres", "":
		retry := &utils.RetryConfig{
			MaxAttempts: a.cfg.MaxRetries,
			BaseDelay:   250 * time.Millisecond,
			Logger:      a.logger,
		}
		store, err := storage.NewPostgresStore(ctx, a.cfg.DSN(), retry)
		if err != nil {
			a.logger.Error("[store] Make sure PostgreSQL is running: docker compose up -d")
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", a.cfg.StorageDriver)
	}
}
