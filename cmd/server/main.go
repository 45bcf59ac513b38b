package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/tourfit/internal/config"
	"github.com/copyleftdev/tourfit/internal/errors"
	"github.com/copyleftdev/tourfit/internal/logging"
	"github.com/copyleftdev/tourfit/internal/metrics"
	"github.com/copyleftdev/tourfit/internal/server"
	"github.com/copyleftdev/tourfit/internal/solver"
	"github.com/copyleftdev/tourfit/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "tourfit-server",
		"version": "1.0.0",
	})

	ctx := context.Background()

	if cfg.Database.Type == "sqlite" {
		if err := config.EnsureDataDir(cfg.Database.DSN); err != nil {
			serviceLogger.Fatal("Failed to create data directory", map[string]interface{}{"error": err.Error()})
		}
	}
	store, err := storage.NewStore(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		serviceLogger.Fatal("Failed to create store", map[string]interface{}{"error": err.Error()})
	}
	if err := store.Init(ctx); err != nil {
		serviceLogger.Fatal("Failed to initialize store", map[string]interface{}{
			"error": err.Error(),
			"type":  cfg.Database.Type,
		})
	}
	defer storage.CloseIfSupported(store)

	collectors := metrics.NewCollectors(prometheus.DefaultRegisterer)
	s := solver.New(cfg.Optimization, cfg.Fitness,
		solver.WithLogger(logging.NewZapLogger(serviceLogger)),
		solver.WithMetrics(collectors),
		solver.WithStore(store),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(errors.RecoveryMiddleware(serviceLogger))
	r.Use(errors.ErrorHandler(serviceLogger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debug("Health check")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := server.NewServer(cfg, serviceLogger, s, store)
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		serviceLogger.Info("Starting server", map[string]interface{}{
			"address": httpServer.Addr,
			"store":   cfg.Database.Type,
		})

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	// Running searches are cancelled and record their best tour before exit.
	if err := srv.Close(); err != nil {
		serviceLogger.Error("Error closing server resources", map[string]interface{}{"error": err.Error()})
	}

	serviceLogger.Info("Server stopped")
}
