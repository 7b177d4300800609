package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pindex/internal/api"
	"github.com/hyperengineering/pindex/internal/config"
	"github.com/hyperengineering/pindex/internal/export"
	"github.com/hyperengineering/pindex/internal/logging"
	"github.com/hyperengineering/pindex/internal/report"
	"github.com/hyperengineering/pindex/internal/store"
	"github.com/hyperengineering/pindex/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "pindex",
	Short:        "pindex - Participation Index tracking service",
	SilenceUsage: true,
	RunE:         run,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	Args:  cobra.NoArgs,
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"SQLite database path (overrides config and PINDEX_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dbPathOverride != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = dbPathOverride
	}

	// 3. Initialize logger
	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	slog.Info("configuration loaded")
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)
	if cfg.Auth.APIKey == "" {
		slog.Warn("dev mode: API authentication disabled")
	}

	// 4. Initialize store (migrations)
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return err
	}
	slog.Info("store initialized", "driver", cfg.Database.Driver)

	// 5. Initialize reports and export
	builder := report.NewBuilder(db, logger)
	uploader, err := export.NewUploader(cfg.Export)
	if err != nil {
		db.Close()
		return err
	}
	exporter := export.NewExporter(builder, uploader, cfg.Export.Dir, logger)
	slog.Info("exporter initialized", "dir", cfg.Export.Dir, "bucket", cfg.Export.Bucket)

	// 6. Initialize HTTP router
	handler := api.NewHandler(db, builder, exporter, cfg.Auth.APIKey, Version)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	// 7. Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 8. Background workers
	var wg sync.WaitGroup
	if interval := time.Duration(cfg.Worker.ReconcileInterval); interval > 0 {
		w := worker.NewReconcileWorker(db, interval, cfg.Worker.ReconcileBatchSize)
		startWorker(ctx, &wg, "reconcile", w.Run)
	}
	if interval := time.Duration(cfg.Worker.ExportInterval); interval > 0 {
		c := worker.NewExportCoordinator(db, exporter, interval, cfg.Worker.ExportConcurrency)
		startWorker(ctx, &wg, "export", c.Run)
	}

	// 9. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		// Any other error indicates an actual server failure that should trigger shutdown.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// 10. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 11. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 11a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 11b. Wait for workers to complete
	wg.Wait()

	// 11c. Close store
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
