package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecrec/internal/domain"
	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
	"github.com/kailas-cloud/vecrec/internal/domain/profile"
	"github.com/kailas-cloud/vecrec/internal/metrics"
)

const progressEvery = 100

// Result summarises a catalogue load.
type Result struct {
	Processed int64
	Failed    int64
	Duration  time.Duration
}

// Service turns title metadata into stored aspect profiles.
type Service struct {
	repo     ProfileRepository
	embedder domain.Embedder
	dims     int
	workers  int
	logger   *zap.Logger
}

// New creates an ingestion service. dims is the expected vector size; workers bounds Run.
func New(repo ProfileRepository, embedder domain.Embedder, dims, workers int, logger *zap.Logger) *Service {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, embedder: embedder, dims: dims, workers: workers, logger: logger}
}

// EnsureSchema creates the profile vector space if it is missing.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if err := s.repo.EnsureSchema(ctx, s.dims); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

// IndexTitle embeds the ten aspect prompts of a title and upserts one profile per aspect.
func (s *Service) IndexTitle(ctx context.Context, m profile.TitleMeta) error {
	if m.TitleID <= 0 || m.ExternalID <= 0 {
		return fmt.Errorf("index title: %w: title_id and tmdb_id must be positive", domain.ErrInvalidRequest)
	}
	if m.Name == "" {
		return fmt.Errorf("index title %d: %w: name is required", m.TitleID, domain.ErrInvalidRequest)
	}

	prompts := profile.Prompts(m)
	res, err := domain.BatchEmbed(ctx, s.embedder, prompts[:])
	if err != nil {
		return fmt.Errorf("index title %d: %w", m.TitleID, err)
	}
	if len(res.Embeddings) != aspect.Count {
		return fmt.Errorf("index title %d: %w: got %d vectors for %d prompts",
			m.TitleID, domain.ErrEmbeddingProviderError, len(res.Embeddings), aspect.Count)
	}

	profiles := make([]profile.TitleProfile, 0, aspect.Count)
	for i, a := range aspect.All() {
		vec := res.Embeddings[i]
		if s.dims > 0 && len(vec) != s.dims {
			return fmt.Errorf("index title %d: %w: %s has %d, expected %d",
				m.TitleID, domain.ErrVectorDimMismatch, a, len(vec), s.dims)
		}
		profiles = append(profiles, profile.TitleProfile{
			TitleID:    m.TitleID,
			ExternalID: m.ExternalID,
			Type:       a,
			Year:       m.Year,
			Vector:     vec,
		})
	}

	if err := s.repo.Upsert(ctx, profiles); err != nil {
		return fmt.Errorf("index title %d: %w", m.TitleID, err)
	}
	return nil
}

// Run indexes titles from the channel with a bounded worker pool until the channel
// is closed or ctx is cancelled. Per-title failures are counted, not returned.
func (s *Service) Run(ctx context.Context, titles <-chan profile.TitleMeta) (Result, error) {
	var processed, failed atomic.Int64
	start := time.Now()

	var g errgroup.Group
	for w := range s.workers {
		g.Go(func() error {
			s.worker(ctx, w, titles, &processed, &failed)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Processed: processed.Load(),
		Failed:    failed.Load(),
		Duration:  time.Since(start),
	}
	s.logger.Info("ingestion finished",
		zap.Int64("processed", res.Processed),
		zap.Int64("failed", res.Failed),
		zap.Duration("duration", res.Duration),
	)
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("ingest interrupted: %w", err)
	}
	return res, nil
}

func (s *Service) worker(
	ctx context.Context,
	id int,
	titles <-chan profile.TitleMeta,
	processed, failed *atomic.Int64,
) {
	for {
		var (
			m  profile.TitleMeta
			ok bool
		)
		select {
		case <-ctx.Done():
			return
		case m, ok = <-titles:
			if !ok {
				return
			}
		}

		start := time.Now()
		err := s.IndexTitle(ctx, m)
		metrics.IndexTitleDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			failed.Add(1)
			metrics.TitlesIndexedTotal.WithLabelValues(metrics.OutcomeError).Inc()
			s.logger.Warn("index title failed",
				zap.Int("worker", id),
				zap.Int64("title_id", m.TitleID),
				zap.Error(err),
			)
			continue
		}

		metrics.TitlesIndexedTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		if n := processed.Add(1); n%progressEvery == 0 {
			s.logger.Info("ingestion progress",
				zap.Int64("processed", n),
				zap.Int64("failed", failed.Load()),
			)
		}
	}
}
