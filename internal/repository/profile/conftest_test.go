package profile

import (
	"context"
	"testing"

	"github.com/kailas-cloud/vecrec/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	scrollFn    func(ctx context.Context, q *db.ScrollQuery) (*db.ScrollPage, error)
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	upsertFn    func(ctx context.Context, points []db.ProfilePoint) error
	schemaFn    func(ctx context.Context, s *db.Schema) error
}

func (m *mockStore) Scroll(ctx context.Context, q *db.ScrollQuery) (*db.ScrollPage, error) {
	if m.scrollFn != nil {
		return m.scrollFn(ctx, q)
	}
	return &db.ScrollPage{}, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Upsert(ctx context.Context, points []db.ProfilePoint) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, points)
	}
	return nil
}

func (m *mockStore) EnsureSchema(ctx context.Context, s *db.Schema) error {
	if m.schemaFn != nil {
		return m.schemaFn(ctx, s)
	}
	return nil
}

func newTestRepo(t *testing.T, opts Options) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, opts), ms
}

func point(tmdbID int64, ptype string, slot int, year *int) db.ProfilePoint {
	return db.ProfilePoint{
		Payload: db.ProfilePayload{TmdbID: tmdbID, TitleID: 1, ProfileType: ptype, Slot: slot, Year: year},
		Vector:  []float32{float32(slot), 1},
	}
}

func intPtr(v int) *int { return &v }
