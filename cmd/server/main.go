/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll reconciliation server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (local development convenience)
  2. Parse command-line flags (cobra)
  3. Load run configuration (viper) and the override policy table
  4. Open the SQLite audit store
  5. Wire the audit service, pipeline runner, and router
  6. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  --config  Run configuration file (default: config.yaml)
  --port    HTTP server port (overrides config)
  --db      SQLite audit database path (overrides config)
            Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection
  4. Exit

EXAMPLES:
  # Run with defaults
  ./server --config=./config.yaml

  # Run with an in-memory audit store
  ./server --db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - config: Configuration and policy table loading
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/audit"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/pipeline"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	var (
		configPath string
		port       int
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Payroll reconciliation and audit trail server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, port, dbPath)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "run configuration file")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite audit database path (overrides config)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, port int, dbPath string) error {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("configuration invalid", zap.Error(err))
		return err
	}
	if port != 0 {
		cfg.Port = port
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	registry, err := config.LoadPolicyTable(cfg.PolicyTablePath, cfg.Window)
	if err != nil {
		log.Error("policy table invalid", zap.Error(err))
		return err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Error("failed to open audit store", zap.Error(err))
		return err
	}
	defer store.Close()

	auditor := audit.NewService(store)
	runner := pipeline.NewRunner(cfg, registry, auditor, log)
	handler := api.NewHandler(auditor, runner)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error("server failed", zap.Error(err))
		return err
	case <-quit:
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		return err
	}

	log.Info("server stopped")
	return nil
}
