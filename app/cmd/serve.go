package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"appforge/internal/infrastructure/metrics"
	"appforge/internal/infrastructure/transport"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP intake service",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a)
		},
	}
}

func serve(parent context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := transport.NewAppForgeHandler(a.service, cfg.Server.RateLimit, cfg.Server.RateBurst, logger)

	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Server.MetricsAddr != "" {
		go func() {
			logger.Info("starting metrics server", "addr", cfg.Server.MetricsAddr)
			if err := metrics.StartMetricsServer(cfg.Server.MetricsAddr); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "err", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}

	// sessions already accepted run to completion
	logger.Info("waiting for running sessions")
	a.generator.Wait()

	logger.Info("service stopped")
	return nil
}
