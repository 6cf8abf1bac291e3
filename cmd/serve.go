package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Re-Local/Backend/api"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored plays over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				a.cfg.ServerPort = port
			}
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	server := api.NewServer(store, api.Config{
		SiteURL:   a.cfg.BaseURL,
		UserAgent: a.cfg.UserAgent,
		Timeout:   60 * time.Second,
	}, a.logger)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.ServerPort),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("[api] Listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		a.logger.Info("[api] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
