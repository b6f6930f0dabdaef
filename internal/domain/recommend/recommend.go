package recommend

import "github.com/kailas-cloud/vecrec/internal/domain/aspect"

// Limit bounds accepted by the fusion engine.
const (
	MinLimit = 1
	MaxLimit = 50
)

// Hit is one ranked candidate returned by a per-aspect search.
type Hit struct {
	ExternalID int64
	Score      float64
	Aspect     aspect.Aspect
}

// Contribution is the part a single aspect added to a fused score.
type Contribution struct {
	RawScore float64
	Weight   float64
}

// Fused accumulates the weighted contributions of every aspect that surfaced a candidate.
type Fused struct {
	ExternalID    int64
	Score         float64
	Contributions map[aspect.Aspect]Contribution
	// Order is the position at which the candidate was first discovered.
	Order int
}

// Add folds a weighted hit into the candidate.
func (f *Fused) Add(a aspect.Aspect, raw, weight float64) {
	if f.Contributions == nil {
		f.Contributions = make(map[aspect.Aspect]Contribution, 2)
	}
	f.Contributions[a] = Contribution{RawScore: raw, Weight: weight}
	f.Score += raw * weight
}

// Dominant returns the aspect with the largest weighted contribution.
// Ties go to the lower canonical slot.
func (f *Fused) Dominant() aspect.Aspect {
	var (
		best  aspect.Aspect
		bestV float64
		found bool
	)
	for _, a := range aspect.All() {
		c, ok := f.Contributions[a]
		if !ok {
			continue
		}
		v := c.RawScore * c.Weight
		if !found || v > bestV {
			best, bestV, found = a, v, true
		}
	}
	return best
}

// Metadata is the display data of a title.
type Metadata struct {
	Title        string
	Year         *int
	PosterPath   *string
	BackdropPath *string
	Popularity   float64
}

// Item is one ranked entry of a recommendation response.
// Metadata is nil when enrichment was unavailable.
type Item struct {
	ExternalID   int64
	Score        float64
	SourceBucket aspect.Aspect
	Metadata     *Metadata
}

// Envelope is the response of a recommendation request.
type Envelope struct {
	TitleID int64
	Count   int
	Results []Item
}

// Empty returns a well-formed envelope with no results.
func Empty(titleID int64) Envelope {
	return Envelope{TitleID: titleID, Results: []Item{}}
}
