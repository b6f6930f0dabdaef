package recommend

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
	"github.com/kailas-cloud/vecrec/internal/metrics"
)

// enrich converts ranked candidates into response items and attaches metadata where the
// provider answers in time. Items whose lookup fails stay bare.
func (s *Service) enrich(ctx context.Context, log *zap.Logger, top []*recommend.Fused) []recommend.Item {
	items := make([]recommend.Item, len(top))
	for i, f := range top {
		items[i] = recommend.Item{
			ExternalID:   f.ExternalID,
			Score:        f.Score,
			SourceBucket: f.Dominant(),
		}
	}
	if s.meta == nil {
		return items
	}

	var g errgroup.Group
	g.SetLimit(s.opts.EnrichConcurrency)
	for i := range items {
		g.Go(func() error {
			defer func() {
				if rvr := recover(); rvr != nil {
					metrics.EnrichmentsTotal.WithLabelValues(metrics.OutcomeError).Inc()
					log.Error("enrichment panicked",
						zap.Int64("tmdb_id", items[i].ExternalID),
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
				}
			}()

			callCtx, cancel := context.WithTimeout(ctx, s.opts.EnrichTimeout)
			defer cancel()

			md, err := s.meta.Lookup(callCtx, items[i].ExternalID)
			metrics.EnrichmentsTotal.WithLabelValues(outcomeOf(err)).Inc()
			if err != nil {
				log.Debug("enrichment unavailable",
					zap.Int64("tmdb_id", items[i].ExternalID),
					zap.Error(err),
				)
				return nil
			}
			items[i].Metadata = md
			return nil
		})
	}
	_ = g.Wait()

	return items
}
