package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrec/internal/config"
	"github.com/kailas-cloud/vecrec/internal/db"
	dbQdrant "github.com/kailas-cloud/vecrec/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/vecrec/internal/db/redis"
	logpkg "github.com/kailas-cloud/vecrec/internal/logger"
	"github.com/kailas-cloud/vecrec/internal/metrics"
	profilerepo "github.com/kailas-cloud/vecrec/internal/repository/profile"
	chiTransport "github.com/kailas-cloud/vecrec/internal/transport/chi"
	"github.com/kailas-cloud/vecrec/internal/transport/tmdb"
	healthuc "github.com/kailas-cloud/vecrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/vecrec/internal/usecase/recommend"
	"github.com/kailas-cloud/vecrec/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level, logpkg.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	store, err := openStore(cfg.Database, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Explicit registration; only the HTTP middleware registers itself.
	metrics.RegisterRecommendMetrics()
	metrics.RegisterBreakerMetrics()

	repo := profilerepo.New(store, profilerepo.Options{
		PageSize:    cfg.Recommend.ScrollPageSize,
		MaxPages:    cfg.Recommend.MaxScrollPages,
		YearWindow:  cfg.Recommend.YearWindow,
		HNSWM:       cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})

	healthSvc := healthuc.New(store)

	// Keep the interface nil (not a typed nil pointer) when enrichment is off.
	var meta recommenduc.MetadataProvider
	if cfg.Metadata.Provider != "" {
		client, err := newMetadataClient(cfg.Metadata, logger)
		if err != nil {
			logger.Fatal("Failed to create metadata client", zap.Error(err))
		}
		meta = client
		healthSvc = healthSvc.With(cfg.Metadata.Provider, client)
		logger.Info("Metadata enrichment enabled",
			zap.String("provider", cfg.Metadata.Provider),
			zap.String("media_type", cfg.Metadata.MediaType),
		)
	}

	recSvc := recommenduc.New(repo, meta, recommenduc.Options{
		OverfetchFactor:   cfg.Recommend.OverfetchFactor,
		SearchConcurrency: cfg.Recommend.SearchConcurrency,
		EnrichConcurrency: cfg.Recommend.EnrichConcurrency,
		SearchTimeout:     cfg.Recommend.SearchTimeout(),
		EnrichTimeout:     cfg.Recommend.EnrichTimeout(),
	}, logger)

	server := chiTransport.NewServer(recSvc, healthSvc, logger)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore creates the vector store selected by database.driver.
func openStore(dbCfg config.DatabaseConfig, storage config.StorageConfig) (db.Store, error) {
	switch dbCfg.Driver {
	case config.DriverQdrant:
		return dbQdrant.NewStore(dbQdrant.Config{
			URL:        dbCfg.URL,
			APIKey:     dbCfg.APIKey,
			Collection: dbCfg.Collection,
			Timeout:    time.Duration(dbCfg.RequestTimeoutMs) * time.Millisecond,
		})
	case config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:     dbCfg.Addrs,
			Password:  dbCfg.Password,
			KeyPrefix: storage.KeyPrefix,
		})
	}
	return nil, fmt.Errorf("unknown database driver %q", dbCfg.Driver)
}

func newMetadataClient(m config.MetadataConfig, logger *zap.Logger) (*tmdb.Client, error) {
	client, err := tmdb.New(tmdb.Config{
		BaseURL:           m.BaseURL,
		APIKey:            m.APIKey,
		MediaType:         m.MediaType,
		Language:          m.Language,
		RequestsPerSecond: m.RequestsPerSecond,
		Burst:             m.Burst,
		Breaker: tmdb.BreakerSettings{
			MaxRequests:  m.Breaker.MaxRequests,
			Interval:     time.Duration(m.Breaker.IntervalSec) * time.Second,
			Timeout:      time.Duration(m.Breaker.TimeoutSec) * time.Second,
			MinRequests:  m.Breaker.MinRequests,
			FailureRatio: m.Breaker.FailureRatio,
		},
	}, logger.Named("tmdb"))
	if err != nil {
		return nil, fmt.Errorf("create tmdb client: %w", err)
	}
	return client, nil
}
