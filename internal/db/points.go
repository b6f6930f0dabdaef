package db

import "github.com/kailas-cloud/vecrec/internal/domain/filter"

// Payload field names shared by every backend.
const (
	FieldTmdbID      = "tmdb_id"
	FieldTitleID     = "title_id"
	FieldProfileType = "profile_type"
	FieldSlot        = "slot"
	FieldYear        = "year"
	FieldVector      = "vector"
)

// ProfilePayload is the typed payload of a stored profile point.
type ProfilePayload struct {
	TmdbID      int64  `json:"tmdb_id"`
	TitleID     int64  `json:"title_id"`
	ProfileType string `json:"profile_type"`
	Slot        int    `json:"slot"`
	Year        *int   `json:"year"`
}

// ProfilePoint is one stored profile vector with its payload.
type ProfilePoint struct {
	Payload ProfilePayload
	Vector  []float32
}

// ScrollQuery selects one page of a title's points.
// An empty Cursor starts from the beginning.
type ScrollQuery struct {
	TitleID int64
	Cursor  string
	Limit   int
}

// ScrollPage is one page of scroll output. Next is empty on the last page.
type ScrollPage struct {
	Points []ProfilePoint
	Next   string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	Filters filter.Expression
	Vector  []float32
	K       int
}

// HitPayload is the typed payload returned with a search hit.
type HitPayload struct {
	TmdbID      int64  `json:"tmdb_id"`
	ProfileType string `json:"profile_type"`
	Year        *int   `json:"year"`
}

// SearchResult is the output of a KNN search, best match first.
type SearchResult struct {
	Hits []SearchHit
}

// SearchHit is a single scored point. Score is a similarity: higher is closer.
type SearchHit struct {
	Score   float64
	Payload HitPayload
}

// Schema describes the vector space profiles are stored in.
type Schema struct {
	Dimensions  int
	Distance    DistanceMetric
	HNSWM       int
	EFConstruct int
}
