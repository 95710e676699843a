package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/freeday/internal/config"
	"github.com/dukerupert/freeday/internal/database"
	"github.com/dukerupert/freeday/internal/metrics"
	"github.com/dukerupert/freeday/internal/server"
)

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, server.Config{WriteLimit: cfg.WriteLimit}, metrics.New(), logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go srv.RateLimiter().RunCleanup(cleanupCtx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("freeday backend starting", "addr", httpServer.Addr, "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
