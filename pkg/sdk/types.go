package vecrec

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
)

// Recommendations is the answer to a recommendation query.
// Results is never nil.
type Recommendations struct {
	TitleID int64
	Count   int
	Results []Recommendation
}

// Recommendation is one ranked similar title.
type Recommendation struct {
	TmdbID int64
	Score  float64
	// SourceBucket names the aspect that contributed most to Score.
	SourceBucket string
	// Metadata is nil when no provider is configured or the lookup failed.
	Metadata *TitleMetadata
}

// TitleMetadata is the display data attached to a recommendation.
type TitleMetadata struct {
	Title        string
	Year         *int
	PosterPath   *string
	BackdropPath *string
}

// MetadataProvider resolves display data for a TMDB id.
type MetadataProvider interface {
	Lookup(ctx context.Context, tmdbID int64) (*TitleMetadata, error)
}

// metadataAdapter wraps a public MetadataProvider to satisfy the engine's provider.
type metadataAdapter struct {
	inner MetadataProvider
}

func (a *metadataAdapter) Lookup(ctx context.Context, externalID int64) (*recommend.Metadata, error) {
	md, err := a.inner.Lookup(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("lookup %d: %w", externalID, err)
	}
	if md == nil {
		return nil, nil
	}
	return &recommend.Metadata{
		Title:        md.Title,
		Year:         md.Year,
		PosterPath:   md.PosterPath,
		BackdropPath: md.BackdropPath,
	}, nil
}

func fromEnvelope(env recommend.Envelope) Recommendations {
	out := Recommendations{
		TitleID: env.TitleID,
		Count:   env.Count,
		Results: make([]Recommendation, len(env.Results)),
	}
	for i, it := range env.Results {
		r := Recommendation{
			TmdbID:       it.ExternalID,
			Score:        it.Score,
			SourceBucket: string(it.SourceBucket),
		}
		if md := it.Metadata; md != nil {
			r.Metadata = &TitleMetadata{
				Title:        md.Title,
				Year:         md.Year,
				PosterPath:   md.PosterPath,
				BackdropPath: md.BackdropPath,
			}
		}
		out.Results[i] = r
	}
	return out
}
