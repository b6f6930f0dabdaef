package profile

import "github.com/kailas-cloud/vecrec/internal/domain/aspect"

// TitleProfile is one aspect vector of one title.
type TitleProfile struct {
	TitleID    int64
	ExternalID int64
	Type       aspect.Aspect
	Year       *int
	Vector     []float32
}

// Slot returns the canonical slot of the profile's aspect.
func (p TitleProfile) Slot() int { return p.Type.Slot() }

// TitleMeta is the catalogue metadata a title's prompts are built from.
type TitleMeta struct {
	TitleID    int64    `json:"title_id"`
	ExternalID int64    `json:"tmdb_id"`
	Name       string   `json:"name"`
	Synopsis   string   `json:"synopsis"`
	Genres     []string `json:"genres"`
	Year       *int     `json:"year,omitempty"`
}
