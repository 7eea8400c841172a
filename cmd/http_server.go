package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/instrumentalist-payouts/internal/auth"
	"github.com/frahmantamala/instrumentalist-payouts/internal/balance"
	"github.com/frahmantamala/instrumentalist-payouts/internal/batch"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/frahmantamala/instrumentalist-payouts/internal/serviceevent"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transfer"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport/rest"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport/swagger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, logger := mustLoad()
	ctx := context.Background()

	if _, err := swagger.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid OpenAPI document: %v\n", err)
		os.Exit(1)
	}

	deps, err := initializeDependencies(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router, err := setupRoutes(deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting HTTP server", "address", addr, "balance_mode", deps.Balance.Mode())

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		deps.Close()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	logger := deps.Logger

	verifier, err := auth.NewTokenVerifier(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, 0)
	if err != nil {
		return nil, err
	}

	sqlDB, err := deps.DB.DB()
	if err != nil {
		return nil, err
	}
	checks := map[string]rest.Checker{"postgres": sqlDB}
	if deps.Redis != nil {
		checks["redis"] = rest.CheckerFunc(deps.Redis.Ping)
	}

	routes := rest.Routes{
		Health:     rest.NewHealthHandler(checks),
		Auth:       auth.NewHandler(verifier, logger),
		Payments:   payment.NewHandler(deps.Payments, logger),
		Processing: transfer.NewHandler(deps.Orchestrator, logger),
		Batch:      batch.NewHandler(deps.Batch, logger),
		Balance:    balance.NewHandler(deps.Balance, logger),
		Services:   serviceevent.NewHandler(deps.ServiceEvents, logger),
	}
	if cfg.Observability.Metrics.Enabled {
		routes.Metrics = deps.Registry
		routes.MetricsPath = cfg.Observability.Metrics.Path
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, routes, logger)
	return router, nil
}
