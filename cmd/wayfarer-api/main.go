// README: Entry point; loads config, wires services, serves HTTP and persists the example cache on shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wayfarer/internal/ai"
	"wayfarer/internal/config"
	httptransport "wayfarer/internal/http"
	"wayfarer/internal/infra"
	"wayfarer/internal/maps"
	"wayfarer/internal/modules/examples"
	"wayfarer/internal/modules/history"
	"wayfarer/internal/modules/metrics"
	"wayfarer/internal/modules/quota"
	"wayfarer/internal/service"
	"wayfarer/internal/types"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := infra.NewLogger(cfg.LogFile, cfg.IsProduction())
	defer func() { _ = logger.Sync() }()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verifier infra.TokenVerifier
	if cfg.AuthEnabled() {
		verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return fmt.Errorf("firebase init: %w", err)
		}
	} else {
		logger.Warn("WAYFARER_FIREBASE_PROJECT_ID not set, auth disabled")
	}

	var geo history.CountryResolver
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocodeService(cfg.Maps.APIKey, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("maps init: %w", err)
		}
		geo = g
	}

	var (
		tripStore  history.Store = history.NewMemoryStore()
		quotaStore quota.Store   = quota.NewMemoryStore()
	)
	if cfg.DB.DSN != "" {
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := infra.ApplyMigrations(ctx, db, cfg.DB.MigrationsDir); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		tripStore = history.NewPostgresStore(db)
		quotaStore = quota.NewPostgresStore(db)
	} else {
		logger.Warn("WAYFARER_DB_DSN not set, history and quota are kept in memory")
	}

	weights, err := examples.WeightsByName(cfg.Examples.Scoring)
	if err != nil {
		return err
	}
	scorer, err := examples.NewScorer(weights)
	if err != nil {
		return err
	}
	selCfg := examples.DefaultSelectorConfig()
	selCfg.TopK = cfg.Examples.TopK
	cache, err := examples.NewCache(examples.CacheConfig{
		Capacity:         cfg.Examples.CacheCapacity,
		ExamplesPerEntry: cfg.Examples.ExamplesPerEntry,
	})
	if err != nil {
		return err
	}

	var snapshots *examples.SnapshotStore
	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer func(rdb *redis.Client) { _ = rdb.Close() }(rdb)
		snapshots = examples.NewSnapshotStore(rdb, cfg.Redis.SnapshotKey)
		n, err := snapshots.Load(ctx, cache)
		if err != nil {
			logger.Warn("example cache snapshot not restored", zap.Error(err))
		} else {
			logger.Info("example cache restored", zap.Int("entries", n))
		}
	}

	llm, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, ai.ModelOptions{
		Model:           cfg.AI.Model,
		Temperature:     float32(cfg.AI.Temperature),
		MaxOutputTokens: int32(cfg.AI.MaxOutputTokens),
	})
	if err != nil {
		return fmt.Errorf("gemini init: %w", err)
	}
	defer llm.Close()

	tracker := metrics.NewTracker(types.SystemClock)
	assistant, err := service.NewTravelAssistant(service.Deps{
		LLM:      llm,
		History:  history.NewService(tripStore, geo, types.SystemClock, logger.Named("history")),
		Selector: examples.NewSelector(scorer, selCfg),
		Cache:    cache,
		Quota:    quota.NewService(quotaStore, cfg.MonthlyRequests, types.SystemClock),
		Geo:      geo,
		Metrics:  tracker,
		Log:      logger.Named("assistant"),
	}, service.Options{
		AITimeout:        cfg.AI.Timeout,
		ResponseCacheTTL: cfg.ResponseCacheTTL,
	})
	if err != nil {
		return err
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Assistant: assistant,
		Metrics:   tracker,
		Cache:     cache,
		Verifier:  verifier,
		Log:       logger.Named("http"),
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("model", cfg.AI.Model))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if snapshots != nil {
		n, err := snapshots.Save(shutdownCtx, cache)
		if err != nil {
			logger.Error("example cache snapshot not saved", zap.Error(err))
		} else {
			logger.Info("example cache saved", zap.Int("entries", n))
		}
	}
	return nil
}
