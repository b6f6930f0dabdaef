package ingest

import (
	"context"
	"sync"

	"github.com/kailas-cloud/vecrec/internal/domain"
	"github.com/kailas-cloud/vecrec/internal/domain/profile"
)

// --- Mocks ---

type mockRepo struct {
	mu       sync.Mutex
	upserted [][]profile.TitleProfile
	upsertFn func(ctx context.Context, profiles []profile.TitleProfile) error
	schemaFn func(ctx context.Context, dims int) error
}

func (m *mockRepo) Upsert(ctx context.Context, profiles []profile.TitleProfile) error {
	if m.upsertFn != nil {
		if err := m.upsertFn(ctx, profiles); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.upserted = append(m.upserted, profiles)
	m.mu.Unlock()
	return nil
}

func (m *mockRepo) EnsureSchema(ctx context.Context, dims int) error {
	if m.schemaFn != nil {
		return m.schemaFn(ctx, dims)
	}
	return nil
}

func (m *mockRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserted)
}

// mockEmbedder supports only single-text Embed, exercising the fallback path.
type mockEmbedder struct {
	dims    int
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: make([]float32, m.dims), TotalTokens: 1}, nil
}

// mockBatchEmbedder answers with a fixed batch.
type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	texts   []string
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.texts = texts
	return m.batchFn(ctx, texts)
}

// --- Fixtures ---

func sampleMeta(id int64) profile.TitleMeta {
	year := 2010
	return profile.TitleMeta{
		TitleID:    id,
		ExternalID: id * 10,
		Name:       "Inception",
		Synopsis:   "A thief who steals corporate secrets through dream-sharing technology.",
		Genres:     []string{"Action", "Science Fiction"},
		Year:       &year,
	}
}

func vectors(n, dims int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dims)
		out[i][0] = float32(i)
	}
	return out
}
