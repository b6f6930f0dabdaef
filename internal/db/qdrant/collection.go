package qdrant

import (
	"context"
	"errors"
	"net/http"

	"github.com/kailas-cloud/vecrec/internal/db"
)

type createCollectionRequest struct {
	Vectors    vectorParams `json:"vectors"`
	HNSWConfig *hnswConfig  `json:"hnsw_config,omitempty"`
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type hnswConfig struct {
	M           int `json:"m,omitempty"`
	EFConstruct int `json:"ef_construct,omitempty"`
}

type payloadIndexRequest struct {
	FieldName   string `json:"field_name"`
	FieldSchema string `json:"field_schema"`
}

var payloadIndexes = []payloadIndexRequest{
	{FieldName: db.FieldTitleID, FieldSchema: "integer"},
	{FieldName: db.FieldTmdbID, FieldSchema: "integer"},
	{FieldName: db.FieldProfileType, FieldSchema: "keyword"},
	{FieldName: db.FieldYear, FieldSchema: "integer"},
}

// EnsureSchema creates the collection and its payload indexes unless the collection exists.
func (s *Store) EnsureSchema(ctx context.Context, schema *db.Schema) error {
	var info struct {
		Status string `json:"status"`
	}
	err := s.call(ctx, db.OpGetCollection, http.MethodGet, s.collectionPath(""), nil, &info)
	if err == nil {
		return nil
	}
	var se *statusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		return err
	}

	req := createCollectionRequest{
		Vectors: vectorParams{Size: schema.Dimensions, Distance: distanceName(schema.Distance)},
	}
	if schema.HNSWM > 0 || schema.EFConstruct > 0 {
		req.HNSWConfig = &hnswConfig{M: schema.HNSWM, EFConstruct: schema.EFConstruct}
	}
	var ok bool
	if err := s.call(ctx, db.OpCreateCollection, http.MethodPut, s.collectionPath(""), req, &ok); err != nil {
		return err
	}

	for _, idx := range payloadIndexes {
		var ack struct {
			Status string `json:"status"`
		}
		if err := s.call(ctx, db.OpCreateCollection, http.MethodPut, s.collectionPath("/index?wait=true"), idx, &ack); err != nil {
			return err
		}
	}
	return nil
}

func distanceName(d db.DistanceMetric) string {
	switch d {
	case db.DistanceL2:
		return "Euclid"
	case db.DistanceIP:
		return "Dot"
	default:
		return "Cosine"
	}
}
