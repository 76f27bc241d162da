package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intelliroute/intelliroute/internal/api"
	"github.com/intelliroute/intelliroute/internal/config"
	"github.com/intelliroute/intelliroute/internal/engine"
	"github.com/intelliroute/intelliroute/internal/events"
	"github.com/intelliroute/intelliroute/internal/metrics"
	"github.com/intelliroute/intelliroute/internal/scoring"
	"github.com/intelliroute/intelliroute/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("store ready", "driver", cfg.Database.Driver)

	// Event bus (optional)
	var bus events.Client
	if cfg.Events.URL != "" {
		ec, err := events.NewNATSClient(ctx, cfg.Events.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to event bus, running without events", "error", err)
		} else {
			bus = ec
			defer ec.Close()
			logger.Info("connected to event bus")
		}
	}

	// Metrics
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// Scorer
	backend, err := scorerBackend(cfg)
	if err != nil {
		logger.Error("failed to build scorer", "error", err)
		os.Exit(1)
	}
	adapter := scoring.NewAdapter(backend, cfg.ScorerTimeout(), logger)
	adapter.OnFallback(collector.RecordScoringFallback)

	// Engine
	ledger := engine.NewLedger(db, bus, collector, logger)
	eng := engine.New(db, adapter, ledger, bus, collector, logger, engine.Options{
		TickInterval:     cfg.TickInterval(),
		SLACheckInterval: cfg.SLACheckInterval(),
		Policy: engine.RoutingPolicy{
			JuniorMax:    cfg.Routing.JuniorMax,
			MidMax:       cfg.Routing.MidMax,
			MaxAttempts:  cfg.Routing.MaxAttempts,
			AutoEscalate: cfg.Routing.AutoEscalate,
		},
	})
	eng.Start()
	defer eng.Stop()

	if err := eng.SetupSubscriptions(); err != nil {
		logger.Warn("failed to subscribe to query requests", "error", err)
	}

	// API server
	router := api.NewRouter(db, eng, cfg.Server.AdminToken, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return db, nil
	default:
		return store.NewSQLiteStore(ctx, cfg.Database.Path)
	}
}

func scorerBackend(cfg *config.Config) (scoring.Scorer, error) {
	switch cfg.Scorer.Backend {
	case "service":
		return scoring.NewServiceClient(cfg.Scorer.URL), nil
	case "ollama":
		return scoring.NewOllamaScorer(cfg.Scorer.URL, cfg.Scorer.Model)
	default:
		return scoring.HeuristicScorer{}, nil
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
