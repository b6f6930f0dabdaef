package vecrec

import (
	"context"

	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
	healthuc "github.com/kailas-cloud/vecrec/internal/usecase/health"
)

// --- recommendUseCase mock ---

type mockRecommendUC struct {
	recommendFn func(ctx context.Context, titleID int64, limit int) recommend.Envelope
	mixFn       func(ctx context.Context, titleID int64, limit int, spec string) recommend.Envelope
}

func (m *mockRecommendUC) Recommend(ctx context.Context, titleID int64, limit int) recommend.Envelope {
	return m.recommendFn(ctx, titleID, limit)
}

func (m *mockRecommendUC) RecommendWithMix(
	ctx context.Context, titleID int64, limit int, spec string,
) recommend.Envelope {
	return m.mixFn(ctx, titleID, limit, spec)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- MetadataProvider mock ---

type mockMetadata struct {
	fn func(ctx context.Context, tmdbID int64) (*TitleMetadata, error)
}

func (m *mockMetadata) Lookup(ctx context.Context, tmdbID int64) (*TitleMetadata, error) {
	return m.fn(ctx, tmdbID)
}

// --- helpers ---

func testClient(rec recommendUseCase, obs *observer) *Client {
	return &Client{recSvc: rec, obs: obs}
}

func ptr[T any](v T) *T { return &v }
