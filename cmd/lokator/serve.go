package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/lokator/internal/api"
	"github.com/erazemk/lokator/internal/auth"
	"github.com/erazemk/lokator/internal/clock"
	"github.com/erazemk/lokator/internal/imaging"
	"github.com/erazemk/lokator/internal/metrics"
	"github.com/erazemk/lokator/internal/report"
	"github.com/erazemk/lokator/internal/transfer"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (creates a missing SQLite database first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringP("addr", "a", "", "listen address (default: :8080)")
	cmd.Flags().StringP("user", "u", "", "admin username on first run (default: Admin)")
	a.bind(cmd.Flags().Lookup("addr"), "server.addr")
	a.bind(cmd.Flags().Lookup("user"), "admin.user")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check if DB exists, auto-init if not.
	if a.sqliteMissing() {
		password, err := a.initDatabase(ctx)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(a.cfg.DB.Path, a.cfg.Admin.User, password)
		fmt.Println()
	}

	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.DB.Close()
	slog.Info("database ready", "driver", a.cfg.DB.Driver)

	// Load JWT secret from database (auto-generated on first run).
	secret, err := s.GetJWTSecret(ctx)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	var m *metrics.Metrics
	if a.cfg.Metrics.Enabled {
		m = metrics.New()
	}

	router := api.NewRouter(api.Deps{
		Store: s,
		Transfers: transfer.New(s, m, transfer.Options{
			MaxRetries:   a.cfg.Transfer.MaxRetries,
			RetryBackoff: a.cfg.Transfer.RetryBackoff,
			BulkWorkers:  a.cfg.Transfer.BulkWorkers,
		}),
		Reports: report.New(s),
		Tokens:  auth.NewTokens(secret, auth.TokenExpiry, clock.Real{}),
		Photos:  imaging.New(),
		Metrics: m,
	})

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       a.cfg.Server.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", a.cfg.Server.Addr, "metrics", m != nil)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
