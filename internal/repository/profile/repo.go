package profile

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/vecrec/internal/db"
	"github.com/kailas-cloud/vecrec/internal/domain"
	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
	"github.com/kailas-cloud/vecrec/internal/domain/filter"
	"github.com/kailas-cloud/vecrec/internal/domain/profile"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
)

// store is the consumer interface for profile storage (ISP).
type store interface {
	Scroll(ctx context.Context, q *db.ScrollQuery) (*db.ScrollPage, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	Upsert(ctx context.Context, points []db.ProfilePoint) error
	EnsureSchema(ctx context.Context, s *db.Schema) error
}

// Options tune paging, the year window and the HNSW graph built by EnsureSchema.
type Options struct {
	PageSize    int
	MaxPages    int
	YearWindow  int
	HNSWM       int
	EFConstruct int
}

// DefaultOptions holds the production paging limits.
var DefaultOptions = Options{PageSize: 16, MaxPages: 10, YearWindow: 20, HNSWM: 16, EFConstruct: 200}

// Repo implements the profile store client used by fusion and ingestion.
type Repo struct {
	store store
	opts  Options
}

// New creates a profile repository. Zero option fields take DefaultOptions values.
func New(s store, opts Options) *Repo {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultOptions.PageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultOptions.MaxPages
	}
	if opts.YearWindow <= 0 {
		opts.YearWindow = DefaultOptions.YearWindow
	}
	if opts.HNSWM <= 0 {
		opts.HNSWM = DefaultOptions.HNSWM
	}
	if opts.EFConstruct <= 0 {
		opts.EFConstruct = DefaultOptions.EFConstruct
	}
	return &Repo{store: s, opts: opts}
}

// GetProfiles returns the indexed aspect profiles of a title ordered by slot.
// Paging stops after MaxPages or on a repeated cursor; whatever was collected
// up to that point is returned. A title with no profiles yields an empty slice.
func (r *Repo) GetProfiles(ctx context.Context, titleID int64) ([]profile.TitleProfile, error) {
	byAspect := make(map[aspect.Aspect]profile.TitleProfile, aspect.Count)
	seen := make(map[string]bool)

	cursor := ""
	for page := 0; page < r.opts.MaxPages; page++ {
		res, err := r.store.Scroll(ctx, &db.ScrollQuery{TitleID: titleID, Cursor: cursor, Limit: r.opts.PageSize})
		if err != nil {
			return nil, fmt.Errorf("get profiles %d: %w: %w", titleID, domain.ErrStoreUnavailable, err)
		}

		for _, p := range res.Points {
			a, ok := aspect.Parse(p.Payload.ProfileType)
			if !ok {
				continue
			}
			if _, dup := byAspect[a]; dup {
				continue
			}
			byAspect[a] = profile.TitleProfile{
				TitleID:    titleID,
				ExternalID: p.Payload.TmdbID,
				Type:       a,
				Year:       p.Payload.Year,
				Vector:     p.Vector,
			}
		}

		if res.Next == "" || seen[res.Next] {
			break
		}
		seen[res.Next] = true
		cursor = res.Next
	}

	out := make([]profile.TitleProfile, 0, len(byAspect))
	for _, p := range byAspect {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot() < out[j].Slot() })
	return out, nil
}

// Search returns up to limit nearest titles for one aspect, best first.
// The seed title is excluded and, when year is known, candidates are
// restricted to the configured window around it.
func (r *Repo) Search(
	ctx context.Context, vector []float32, a aspect.Aspect,
	excludeID int64, limit int, year *int,
) ([]recommend.Hit, error) {
	expr, err := r.searchFilter(a, excludeID, year)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", a, err)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{Filters: expr, Vector: vector, K: limit})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w: %w", a, domain.ErrStoreUnavailable, err)
	}

	hits := make([]recommend.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, recommend.Hit{ExternalID: h.Payload.TmdbID, Score: h.Score, Aspect: a})
	}
	return hits, nil
}

func (r *Repo) searchFilter(a aspect.Aspect, excludeID int64, year *int) (filter.Expression, error) {
	typeCond, err := filter.NewKeyword(db.FieldProfileType, string(a))
	if err != nil {
		return filter.Expression{}, err
	}
	must := []filter.Condition{typeCond}

	if year != nil {
		rng, err := filter.Between(float64(*year-r.opts.YearWindow), float64(*year+r.opts.YearWindow))
		if err != nil {
			return filter.Expression{}, err
		}
		yearCond, err := filter.NewRange(db.FieldYear, rng)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, yearCond)
	}

	self, err := filter.NewInteger(db.FieldTmdbID, excludeID)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(must, []filter.Condition{self})
}

// Upsert stores profiles, one point per (title, aspect).
func (r *Repo) Upsert(ctx context.Context, profiles []profile.TitleProfile) error {
	points := make([]db.ProfilePoint, 0, len(profiles))
	for _, p := range profiles {
		if !p.Type.IsValid() {
			return fmt.Errorf("upsert title %d: unknown aspect %q", p.TitleID, p.Type)
		}
		points = append(points, db.ProfilePoint{
			Payload: db.ProfilePayload{
				TmdbID:      p.ExternalID,
				TitleID:     p.TitleID,
				ProfileType: string(p.Type),
				Slot:        p.Slot(),
				Year:        p.Year,
			},
			Vector: p.Vector,
		})
	}
	if err := r.store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert title profiles: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the cosine vector space for profiles of the given dimension.
// It is a no-op when the space already exists.
func (r *Repo) EnsureSchema(ctx context.Context, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("ensure schema: dimensions must be positive")
	}
	err := r.store.EnsureSchema(ctx, &db.Schema{
		Dimensions:  dims,
		Distance:    db.DistanceCosine,
		HNSWM:       r.opts.HNSWM,
		EFConstruct: r.opts.EFConstruct,
	})
	if err != nil {
		return fmt.Errorf("ensure schema: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
