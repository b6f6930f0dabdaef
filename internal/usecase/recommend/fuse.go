package recommend

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
	"github.com/kailas-cloud/vecrec/internal/domain/mix"
	"github.com/kailas-cloud/vecrec/internal/domain/profile"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
	"github.com/kailas-cloud/vecrec/internal/metrics"
)

// searchAll runs one neighbour search per seed profile. Results land in the aspect's slot;
// a failed search leaves its slot empty.
func (s *Service) searchAll(
	ctx context.Context, log *zap.Logger, seeds []profile.TitleProfile,
	excludeID int64, k int, year *int,
) [aspect.Count][]recommend.Hit {
	var lists [aspect.Count][]recommend.Hit

	var g errgroup.Group
	g.SetLimit(s.opts.SearchConcurrency)
	for _, p := range seeds {
		slot := p.Slot()
		if slot < 0 {
			continue
		}
		g.Go(func() error {
			defer func() {
				if rvr := recover(); rvr != nil {
					metrics.AspectSearchesTotal.WithLabelValues(string(p.Type), metrics.OutcomeError).Inc()
					log.Error("aspect search panicked",
						zap.String("aspect", string(p.Type)),
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
				}
			}()

			callCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
			defer cancel()

			hits, err := s.store.Search(callCtx, p.Vector, p.Type, excludeID, k, year)
			metrics.AspectSearchesTotal.WithLabelValues(string(p.Type), outcomeOf(err)).Inc()
			if err != nil {
				log.Warn("aspect search degraded",
					zap.String("aspect", string(p.Type)),
					zap.Int("k", k),
					zap.Error(err),
				)
				return nil
			}
			lists[slot] = hits
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return lists
}

// fuse merges per-aspect hit lists into weighted candidates. Lists are visited in slot
// order and hits in rank order, so Order reflects a deterministic first discovery.
// A contribution that would make a score non-finite is dropped.
func fuse(lists [aspect.Count][]recommend.Hit, w mix.Weights, seedID int64) []*recommend.Fused {
	byID := make(map[int64]*recommend.Fused)
	var pool []*recommend.Fused

	for slot, hits := range lists {
		weight := w[slot]
		if weight <= 0 {
			continue
		}
		a, _ := aspect.FromSlot(slot)
		for _, h := range hits {
			if h.ExternalID == seedID || !finite(h.Score*weight) {
				continue
			}
			f, ok := byID[h.ExternalID]
			if ok {
				if _, dup := f.Contributions[a]; dup {
					continue // keep the best-ranked hit per aspect
				}
				if !finite(f.Score + h.Score*weight) {
					continue
				}
			} else {
				f = &recommend.Fused{ExternalID: h.ExternalID, Order: len(pool)}
				byID[h.ExternalID] = f
				pool = append(pool, f)
			}
			f.Add(a, h.Score, weight)
		}
	}
	return pool
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// rank orders candidates by descending score and keeps the first limit.
// Ties keep first-discovery order.
func rank(pool []*recommend.Fused, limit int) []*recommend.Fused {
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})
	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool
}
