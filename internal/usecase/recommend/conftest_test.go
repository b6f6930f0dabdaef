package recommend

import (
	"context"
	"sync"

	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
	"github.com/kailas-cloud/vecrec/internal/domain/profile"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
)

// --- Mocks ---

type searchCall struct {
	aspect    aspect.Aspect
	excludeID int64
	limit     int
	year      *int
}

type mockStore struct {
	profiles    []profile.TitleProfile
	profilesErr error
	searchFn    func(ctx context.Context, a aspect.Aspect) ([]recommend.Hit, error)

	mu       sync.Mutex
	calls    []searchCall
	getCalls int
}

func (m *mockStore) GetProfiles(_ context.Context, _ int64) ([]profile.TitleProfile, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	return m.profiles, m.profilesErr
}

func (m *mockStore) Search(
	ctx context.Context, _ []float32, a aspect.Aspect,
	excludeID int64, limit int, year *int,
) ([]recommend.Hit, error) {
	m.mu.Lock()
	m.calls = append(m.calls, searchCall{aspect: a, excludeID: excludeID, limit: limit, year: year})
	m.mu.Unlock()
	if m.searchFn == nil {
		return nil, nil
	}
	return m.searchFn(ctx, a)
}

func (m *mockStore) searchedAspects() map[aspect.Aspect]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[aspect.Aspect]bool, len(m.calls))
	for _, c := range m.calls {
		out[c.aspect] = true
	}
	return out
}

type mockMeta struct {
	lookupFn func(ctx context.Context, id int64) (*recommend.Metadata, error)
}

func (m *mockMeta) Lookup(ctx context.Context, id int64) (*recommend.Metadata, error) {
	return m.lookupFn(ctx, id)
}

// --- Fixtures ---

const (
	seedTitleID    = int64(1)
	seedExternalID = int64(100)
	seedYearValue  = 1999
)

func seedProfiles(aspects ...aspect.Aspect) []profile.TitleProfile {
	year := seedYearValue
	out := make([]profile.TitleProfile, 0, len(aspects))
	for _, a := range aspects {
		out = append(out, profile.TitleProfile{
			TitleID:    seedTitleID,
			ExternalID: seedExternalID,
			Type:       a,
			Year:       &year,
			Vector:     []float32{0.1, 0.2, 0.3},
		})
	}
	return out
}

func hits(pairs ...any) []recommend.Hit {
	out := make([]recommend.Hit, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, recommend.Hit{ExternalID: int64(pairs[i].(int)), Score: pairs[i+1].(float64)})
	}
	return out
}

// byAspect serves fixed hit lists per aspect.
func byAspect(lists map[aspect.Aspect][]recommend.Hit) func(context.Context, aspect.Aspect) ([]recommend.Hit, error) {
	return func(_ context.Context, a aspect.Aspect) ([]recommend.Hit, error) {
		return lists[a], nil
	}
}

func newTestService(store ProfileStore, meta MetadataProvider) *Service {
	return New(store, meta, Options{}, nil)
}

func ids(env recommend.Envelope) []int64 {
	out := make([]int64, 0, len(env.Results))
	for _, r := range env.Results {
		out = append(out, r.ExternalID)
	}
	return out
}
