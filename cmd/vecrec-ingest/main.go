package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrec/internal/config"
	"github.com/kailas-cloud/vecrec/internal/db"
	dbQdrant "github.com/kailas-cloud/vecrec/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/vecrec/internal/db/redis"
	"github.com/kailas-cloud/vecrec/internal/domain"
	"github.com/kailas-cloud/vecrec/internal/domain/profile"
	logpkg "github.com/kailas-cloud/vecrec/internal/logger"
	"github.com/kailas-cloud/vecrec/internal/metrics"
	"github.com/kailas-cloud/vecrec/internal/repository/embcache"
	profilerepo "github.com/kailas-cloud/vecrec/internal/repository/profile"
	openaiEmb "github.com/kailas-cloud/vecrec/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vecrec/internal/usecase/embedding"
	ingestuc "github.com/kailas-cloud/vecrec/internal/usecase/ingest"
	"github.com/kailas-cloud/vecrec/internal/version"
)

var (
	inputFile  string
	workers    int
	vectorizer string

	rootCmd = &cobra.Command{
		Use:           "vecrec-ingest",
		Short:         "Embed title metadata into per-aspect profiles and load them into the vector store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
)

func init() {
	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "", "JSON Lines file with one title per line (required)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 4, "number of titles embedded concurrently")
	rootCmd.Flags().StringVar(&vectorizer, "vectorizer", "", "vectorizer name from embedding.vectorizers (default: the only one)")
	_ = rootCmd.MarkFlagRequired("file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "vecrec-ingest:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level, logpkg.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	vecName, vecCfg, err := pickVectorizer(cfg.Embedding, vectorizer)
	if err != nil {
		return err
	}
	dims := vecCfg.Dimensions
	if dims == 0 {
		dims = cfg.Index.Dimensions
	}
	if dims <= 0 {
		return fmt.Errorf("vectorizer %q: dimensions are not configured", vecName)
	}

	logger.Info("Starting vecrec ingestion",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("file", inputFile),
		zap.Int("workers", workers),
		zap.String("vectorizer", vecName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", dims),
	)

	store, kv, closeStores, err := openStores(cfg)
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	defer closeStores()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()

	instrumented := buildEmbedder(cfg, vecCfg, kv, logger)
	var embedder domain.Embedder = instrumented
	if vecCfg.DocumentInstruction != "" {
		embedder = domain.NewInstructionEmbedder(instrumented, vecCfg.DocumentInstruction)
	}

	repo := profilerepo.New(store, profilerepo.Options{
		HNSWM:       cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	svc := ingestuc.New(repo, embedder, dims, workers, logger)

	if err := svc.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	f, err := os.Open(filepath.Clean(inputFile))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	titles := make(chan profile.TitleMeta, workers*2)
	readErr := make(chan error, 1)
	go func() {
		skipped, err := svc.ReadTitles(ctx, f, titles)
		if skipped > 0 {
			logger.Warn("Malformed records skipped", zap.Int64("skipped", skipped))
		}
		readErr <- err
	}()

	res, runErr := svc.Run(ctx, titles)
	if err := <-readErr; err != nil && runErr == nil {
		runErr = err
	}

	logger.Info("Ingestion summary",
		zap.Int64("processed", res.Processed),
		zap.Int64("failed", res.Failed),
		zap.Duration("duration", res.Duration),
		zap.Int64("tokens_used", instrumented.TokensUsed()),
	)
	return runErr
}

// openStores returns the vector store and, when the embedding cache is on, a Redis
// key-value store for it. The cache shares the vector store when it is Redis too.
func openStores(cfg config.Config) (db.Store, db.KVStore, func(), error) {
	var redisStore *dbRedis.Store // set when the vector store is Redis
	newRedis := func() (*dbRedis.Store, error) {
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Database.Addrs,
			Password:  cfg.Database.Password,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
	}

	var store db.Store
	switch cfg.Database.Driver {
	case config.DriverQdrant:
		s, err := dbQdrant.NewStore(dbQdrant.Config{
			URL:        cfg.Database.URL,
			APIKey:     cfg.Database.APIKey,
			Collection: cfg.Database.Collection,
			Timeout:    time.Duration(cfg.Database.RequestTimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("qdrant: %w", err)
		}
		store = s
	case config.DriverRedis:
		s, err := newRedis()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis: %w", err)
		}
		redisStore, store = s, s
	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if !cfg.Embedding.Cache {
		return store, nil, store.Close, nil
	}
	if redisStore != nil {
		return store, redisStore, store.Close, nil
	}

	cache, err := newRedis()
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("embedding cache: %w", err)
	}
	return store, cache, func() {
		cache.Close()
		store.Close()
	}, nil
}

func pickVectorizer(emb config.EmbeddingConfig, name string) (string, config.VectorizerConfig, error) {
	if name != "" {
		v, ok := emb.Vectorizers[name]
		if !ok {
			return "", config.VectorizerConfig{}, fmt.Errorf("unknown vectorizer %q", name)
		}
		return name, v, nil
	}
	if len(emb.Vectorizers) != 1 {
		return "", config.VectorizerConfig{}, fmt.Errorf(
			"%d vectorizers configured, choose one with --vectorizer", len(emb.Vectorizers))
	}
	for n, v := range emb.Vectorizers {
		return n, v, nil
	}
	return "", config.VectorizerConfig{}, nil
}

// buildEmbedder assembles OpenAI -> Cached -> Instrumented. The instruction prefix is
// applied by the caller, outermost, so it takes part in the cache key.
func buildEmbedder(
	cfg config.Config,
	vecCfg config.VectorizerConfig,
	kv db.KVStore,
	logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   vecCfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if kv != nil {
		embedder = embcache.New(base, kv, embcache.Options{
			Namespace: fmt.Sprintf("%s:%s:%d", vecCfg.Provider, vecCfg.Model, vecCfg.Dimensions),
			TTL:       time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(
		embedder, vecCfg.Provider, vecCfg.Model, cfg.Embedding.MaxBatchSize, logger,
	)
}
