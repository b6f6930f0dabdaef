package ingest

import (
	"context"

	"github.com/kailas-cloud/vecrec/internal/domain/profile"
)

// ProfileRepository stores title profiles and owns the vector space they live in.
type ProfileRepository interface {
	Upsert(ctx context.Context, profiles []profile.TitleProfile) error
	EnsureSchema(ctx context.Context, dims int) error
}
