package qdrant

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kailas-cloud/vecrec/internal/db"
	"github.com/kailas-cloud/vecrec/internal/domain/filter"
)

type scrollRequest struct {
	Filter      *wireFilter     `json:"filter,omitempty"`
	Limit       int             `json:"limit"`
	Offset      json.RawMessage `json:"offset,omitempty"`
	WithPayload bool            `json:"with_payload"`
	WithVector  bool            `json:"with_vector"`
}

type scrollResult struct {
	Points         []scrollPoint   `json:"points"`
	NextPageOffset json.RawMessage `json:"next_page_offset"`
}

type scrollPoint struct {
	ID      json.RawMessage   `json:"id"`
	Payload db.ProfilePayload `json:"payload"`
	Vector  []float32         `json:"vector"`
}

// Scroll pages through one title's points via POST /collections/{c}/points/scroll.
// The cursor is the raw JSON of next_page_offset.
func (s *Store) Scroll(ctx context.Context, q *db.ScrollQuery) (*db.ScrollPage, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	titleCond, err := filter.NewInteger(db.FieldTitleID, q.TitleID)
	if err != nil {
		return nil, err
	}
	expr, err := filter.NewExpression([]filter.Condition{titleCond}, nil)
	if err != nil {
		return nil, err
	}

	req := scrollRequest{
		Filter:      buildFilter(expr),
		Limit:       q.Limit,
		WithPayload: true,
		WithVector:  true,
	}
	if q.Cursor != "" {
		req.Offset = json.RawMessage(q.Cursor)
	}

	var res scrollResult
	if err := s.call(ctx, db.OpScroll, http.MethodPost, s.collectionPath("/points/scroll"), req, &res); err != nil {
		return nil, err
	}

	page := &db.ScrollPage{Points: make([]db.ProfilePoint, 0, len(res.Points))}
	for _, p := range res.Points {
		if len(p.Vector) == 0 {
			continue
		}
		page.Points = append(page.Points, db.ProfilePoint{Payload: p.Payload, Vector: p.Vector})
	}
	if next := bytes.TrimSpace(res.NextPageOffset); len(next) > 0 && string(next) != "null" {
		page.Next = string(next)
	}
	return page, nil
}

type searchRequest struct {
	Vector      []float32   `json:"vector"`
	Limit       int         `json:"limit"`
	Filter      *wireFilter `json:"filter,omitempty"`
	WithPayload bool        `json:"with_payload"`
}

type searchPoint struct {
	Score   float64       `json:"score"`
	Payload db.HitPayload `json:"payload"`
}

// SearchKNN runs a filtered search via POST /collections/{c}/points/search.
// Qdrant returns hits best first with cosine similarity as the score.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	req := searchRequest{
		Vector:      q.Vector,
		Limit:       q.K,
		Filter:      buildFilter(q.Filters),
		WithPayload: true,
	}

	var points []searchPoint
	if err := s.call(ctx, db.OpPointsSearch, http.MethodPost, s.collectionPath("/points/search"), req, &points); err != nil {
		return nil, err
	}

	res := &db.SearchResult{Hits: make([]db.SearchHit, 0, len(points))}
	for _, p := range points {
		res.Hits = append(res.Hits, db.SearchHit{Score: p.Score, Payload: p.Payload})
	}
	return res, nil
}

type upsertRequest struct {
	Points []upsertPoint `json:"points"`
}

type upsertPoint struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload db.ProfilePayload `json:"payload"`
}

// Upsert writes points via PUT /collections/{c}/points?wait=true.
func (s *Store) Upsert(ctx context.Context, points []db.ProfilePoint) error {
	if len(points) == 0 {
		return nil
	}

	req := upsertRequest{Points: make([]upsertPoint, len(points))}
	for i, p := range points {
		req.Points[i] = upsertPoint{
			ID:      PointID(p.Payload.TitleID, p.Payload.ProfileType),
			Vector:  p.Vector,
			Payload: p.Payload,
		}
	}

	var ack struct {
		Status string `json:"status"`
	}
	return s.call(ctx, db.OpUpsert, http.MethodPut, s.collectionPath("/points?wait=true"), req, &ack)
}

// PointID derives a stable point id from (title, aspect), so re-ingesting a
// title overwrites its previous profiles.
func PointID(titleID int64, profileType string) string {
	name := "vecrec:" + strconv.FormatInt(titleID, 10) + ":" + profileType
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
