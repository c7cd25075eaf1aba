package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/izposoja/internal/api"
	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/notify"
	"github.com/erazemk/izposoja/internal/store"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, creating the database on first run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringP("addr", "a", ":8080", "listen address")
	flags.Int("loan-period-days", circulation.DefaultLoanPeriod, "days between borrowing and due date")
	flags.String("jwt-secret", "", "token signing key (default: generated and kept in the database)")
	a.bind(flags, config.KeyAddr, config.KeyLoanPeriodDays, config.KeyJWTSecret)
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	if _, err := os.Stat(cfg.DB); errors.Is(err, os.ErrNotExist) {
		password, err := initDatabase(cfg.DB, cfg.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(cfg.DB, cfg.AdminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DB)

	secret := cfg.JWTSecret
	if secret == "" {
		secret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return err
		}
	}

	loans := circulation.New(database, notify.New(database))
	loans.LoanPeriod = cfg.LoanPeriodDays

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, secret, loans))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "loan_period_days", cfg.LoanPeriodDays)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
