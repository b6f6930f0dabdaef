package recommend

import (
	"context"

	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
	"github.com/kailas-cloud/vecrec/internal/domain/profile"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
)

// ProfileStore reads seed profiles and runs per-aspect neighbour searches.
type ProfileStore interface {
	GetProfiles(ctx context.Context, titleID int64) ([]profile.TitleProfile, error)
	Search(
		ctx context.Context, vector []float32, a aspect.Aspect,
		excludeID int64, limit int, year *int,
	) ([]recommend.Hit, error)
}

// MetadataProvider resolves display metadata for a recommended title.
type MetadataProvider interface {
	Lookup(ctx context.Context, externalID int64) (*recommend.Metadata, error)
}
