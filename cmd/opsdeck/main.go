package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	opsnats "github.com/opsdeck/opsdeck/internal/adapter/nats"
	opsotel "github.com/opsdeck/opsdeck/internal/adapter/otel"
	"github.com/opsdeck/opsdeck/internal/adapter/postgres"
	"github.com/opsdeck/opsdeck/internal/adapter/resthttp"
	"github.com/opsdeck/opsdeck/internal/adapter/ristretto"
	"github.com/opsdeck/opsdeck/internal/adapter/staffhttp"
	"github.com/opsdeck/opsdeck/internal/adapter/ws"
	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/logger"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/resilience"
	"github.com/opsdeck/opsdeck/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogger := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLogger.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Observability ---
	shutdownOtel, err := opsotel.Setup(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	metrics, err := opsotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := opsnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Staff directory, cache-wrapped and breaker-guarded
	staffCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer staffCache.Close()

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	directory := staffhttp.New(cfg.Staff.URL, cfg.Staff.Timeout, staffCache, cfg.Staff.TTL, breaker)

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	taskSvc := service.NewTaskService(store, queue)
	boardSvc := service.NewBoardService(store, queue, metrics)
	staffSvc := service.NewStaffService(directory)

	cancelBridge, err := service.StartEventBridge(ctx, queue, hub)
	if err != nil {
		return fmt.Errorf("event bridge: %w", err)
	}
	defer cancelBridge()

	// --- HTTP ---
	handlers := resthttp.NewHandlers(taskSvc, boardSvc, staffSvc)

	r := chi.NewRouter()
	r.Use(resthttp.CORS(cfg.Server.CORSOrigin))
	r.Use(resthttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.ActingIdentity)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(opsotel.HTTPMiddleware(cfg.Logging.Service))

	r.Get("/health", healthHandler(hub))
	r.Get("/ws", hub.HandleWS)

	resthttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports liveness and the current WebSocket connection count.
func healthHandler(hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status        string `json:"status"`
		WSConnections int    `json:"ws_connections"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:        "ok",
			WSConnections: hub.ConnectionCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
