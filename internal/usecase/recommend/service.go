package recommend

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrec/internal/domain"
	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
	"github.com/kailas-cloud/vecrec/internal/domain/mix"
	"github.com/kailas-cloud/vecrec/internal/domain/profile"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
	"github.com/kailas-cloud/vecrec/internal/logger"
	"github.com/kailas-cloud/vecrec/internal/metrics"
)

const (
	modeDefault = "default"
	modeMix     = "mix"
)

// Options tune fan-out and per-call deadlines.
type Options struct {
	OverfetchFactor   int
	SearchConcurrency int
	EnrichConcurrency int
	SearchTimeout     time.Duration
	EnrichTimeout     time.Duration
}

// DefaultOptions holds production defaults.
var DefaultOptions = Options{
	OverfetchFactor:   3,
	SearchConcurrency: 4,
	EnrichConcurrency: 8,
	SearchTimeout:     2 * time.Second,
	EnrichTimeout:     1500 * time.Millisecond,
}

// Service is the recommendation fusion engine.
type Service struct {
	store  ProfileStore
	meta   MetadataProvider
	opts   Options
	logger *zap.Logger
}

// New creates a fusion engine. meta may be nil, in which case results are never enriched.
// Zero option fields take DefaultOptions values; the over-fetch factor is clamped to [2,3].
func New(store ProfileStore, meta MetadataProvider, opts Options, logger *zap.Logger) *Service {
	if opts.OverfetchFactor <= 0 {
		opts.OverfetchFactor = DefaultOptions.OverfetchFactor
	}
	opts.OverfetchFactor = min(max(opts.OverfetchFactor, 2), 3)
	if opts.SearchConcurrency <= 0 {
		opts.SearchConcurrency = DefaultOptions.SearchConcurrency
	}
	if opts.EnrichConcurrency <= 0 {
		opts.EnrichConcurrency = DefaultOptions.EnrichConcurrency
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultOptions.SearchTimeout
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = DefaultOptions.EnrichTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, meta: meta, opts: opts, logger: logger}
}

// Recommend returns titles similar to titleID, weighting every aspect of the seed equally.
func (s *Service) Recommend(ctx context.Context, titleID int64, limit int) recommend.Envelope {
	return s.run(ctx, titleID, limit, nil)
}

// RecommendWithMix is Recommend with per-aspect weights taken from a mix spec such as "1-2-0-3".
// A blank spec behaves like Recommend.
func (s *Service) RecommendWithMix(ctx context.Context, titleID int64, limit int, spec string) recommend.Envelope {
	if strings.TrimSpace(spec) == "" {
		return s.run(ctx, titleID, limit, nil)
	}
	w := mix.Parse(spec)
	return s.run(ctx, titleID, limit, &w)
}

func (s *Service) run(ctx context.Context, titleID int64, limit int, weights *mix.Weights) recommend.Envelope {
	mode := modeDefault
	if weights != nil {
		mode = modeMix
	}
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	log := logger.FromContext(ctx, s.logger).With(
		zap.Int64("title_id", titleID),
		zap.Int("limit", limit),
		zap.String("mode", mode),
	)

	if titleID <= 0 || limit < recommend.MinLimit || limit > recommend.MaxLimit {
		log.Debug("rejecting recommendation request", zap.Error(domain.ErrInvalidRequest))
		return empty(titleID, "invalid_request")
	}

	seeds, err := s.store.GetProfiles(ctx, titleID)
	if err != nil {
		log.Warn("failed to load seed profiles", zap.Error(err))
		return empty(titleID, "store_error")
	}
	if len(seeds) == 0 {
		log.Debug("seed has no profiles", zap.Error(domain.ErrNoSeedData))
		return empty(titleID, "no_seed")
	}

	w := resolveWeights(seeds, weights)
	if w.IsZero() {
		log.Debug("mix weighs every aspect 0")
		return empty(titleID, "no_weights")
	}
	tasks := searchable(seeds, w)
	if len(tasks) == 0 {
		log.Debug("no aspect carries a positive weight")
		return empty(titleID, "no_weights")
	}

	seedExternalID := seeds[0].ExternalID
	lists := s.searchAll(ctx, log, tasks, seedExternalID, limit*s.opts.OverfetchFactor, seedYear(seeds))

	pool := fuse(lists, w, seedExternalID)
	metrics.CandidatePoolSize.Observe(float64(len(pool)))
	if len(pool) == 0 {
		return empty(titleID, "no_candidates")
	}

	top := rank(pool, limit)
	items := s.enrich(ctx, log, top)

	return recommend.Envelope{
		TitleID: titleID,
		Count:   len(items),
		Results: items,
	}
}

func empty(titleID int64, reason string) recommend.Envelope {
	metrics.EmptyEnvelopesTotal.WithLabelValues(reason).Inc()
	return recommend.Empty(titleID)
}

// resolveWeights returns explicit weights when given, otherwise weight 1 for each aspect the seed has.
func resolveWeights(seeds []profile.TitleProfile, explicit *mix.Weights) mix.Weights {
	if explicit != nil {
		return *explicit
	}
	present := make([]aspect.Aspect, 0, len(seeds))
	for _, p := range seeds {
		present = append(present, p.Type)
	}
	return mix.Uniform(present)
}

// searchable keeps the seed profiles whose aspect weight is positive.
func searchable(seeds []profile.TitleProfile, w mix.Weights) []profile.TitleProfile {
	out := make([]profile.TitleProfile, 0, len(seeds))
	for _, p := range seeds {
		if w.Of(p.Type) > 0 && len(p.Vector) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// seedYear returns the first release year carried by any seed profile.
func seedYear(seeds []profile.TitleProfile) *int {
	for _, p := range seeds {
		if p.Year != nil {
			return p.Year
		}
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	case errors.Is(err, domain.ErrNotFound):
		return metrics.OutcomeMissing
	default:
		return metrics.OutcomeError
	}
}
