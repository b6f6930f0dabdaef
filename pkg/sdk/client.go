package vecrec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrec/internal/db"
	dbQdrant "github.com/kailas-cloud/vecrec/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/vecrec/internal/db/redis"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
	profilerepo "github.com/kailas-cloud/vecrec/internal/repository/profile"
	"github.com/kailas-cloud/vecrec/internal/transport/tmdb"
	healthuc "github.com/kailas-cloud/vecrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/vecrec/internal/usecase/recommend"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "vecrec:"
)

type recommendUseCase interface {
	Recommend(ctx context.Context, titleID int64, limit int) recommend.Envelope
	RecommendWithMix(ctx context.Context, titleID int64, limit int, spec string) recommend.Envelope
}

// Client is the vecrec SDK entry point.
type Client struct {
	store     db.Store
	recSvc    recommendUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and waits for the vector store to become reachable.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("vecrec: vector store required (use WithQdrant or WithRedis)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("vecrec: vector store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "qdrant":
		s, err := dbQdrant.NewStore(dbQdrant.Config{
			URL:        cfg.url,
			APIKey:     cfg.apiKey,
			Collection: cfg.collection,
		})
		if err != nil {
			return nil, fmt.Errorf("vecrec: create qdrant store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.addrs,
			Password:  cfg.password,
			KeyPrefix: cfg.keyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("vecrec: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("vecrec: unknown driver %q", cfg.driver)
	}
}

// metadataChecker is implemented by providers that can report their health.
type metadataChecker interface {
	HealthCheck(ctx context.Context) error
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	repo := profilerepo.New(store, profilerepo.Options{YearWindow: cfg.yearWindow})
	healthSvc := healthuc.New(store)

	var meta recommenduc.MetadataProvider
	switch {
	case cfg.metadata != nil:
		meta = &metadataAdapter{inner: cfg.metadata}
		if hc, ok := cfg.metadata.(metadataChecker); ok {
			healthSvc = healthSvc.With("metadata", hc)
		}
	case cfg.tmdbKey != "":
		client, err := tmdb.New(tmdb.Config{APIKey: cfg.tmdbKey, MediaType: cfg.tmdbMedia}, nil)
		if err != nil {
			return nil, fmt.Errorf("vecrec: %w", err)
		}
		meta = client
		healthSvc = healthSvc.With("tmdb", client)
	}

	// The engine logs through zap; SDK callers observe operations via WithLogger.
	recSvc := recommenduc.New(repo, meta, recommenduc.Options{
		OverfetchFactor:   cfg.engine.OverfetchFactor,
		SearchConcurrency: cfg.engine.SearchConcurrency,
		EnrichConcurrency: cfg.engine.EnrichConcurrency,
		SearchTimeout:     cfg.engine.SearchTimeout,
		EnrichTimeout:     cfg.engine.EnrichTimeout,
	}, zap.NewNop())

	return &Client{
		store:     store,
		recSvc:    recSvc,
		healthSvc: healthSvc,
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks vector store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Recommend returns up to limit titles similar to titleID, weighting every
// aspect of the seed equally. limit must be in [1,50]; out-of-range limits
// and unknown titles yield an empty result.
func (c *Client) Recommend(ctx context.Context, titleID int64, limit int) Recommendations {
	start := time.Now()
	out := fromEnvelope(c.recSvc.Recommend(ctx, titleID, limit))
	c.obs.observeRecommend("recommend", start, out.Count)
	return out
}

// RecommendWithMix is Recommend with per-aspect weights given as a mix spec:
// hyphen-separated non-negative numbers in canonical aspect order
// (theme, mood, pace, tone, visual, depth, tension, emotion, target, experience).
// Missing and malformed positions weigh 0.
func (c *Client) RecommendWithMix(ctx context.Context, titleID int64, limit int, mix string) Recommendations {
	start := time.Now()
	out := fromEnvelope(c.recSvc.RecommendWithMix(ctx, titleID, limit, mix))
	c.obs.observeRecommend("recommend_mix", start, out.Count)
	return out
}
