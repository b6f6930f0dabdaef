package db

import (
	"context"
	"time"
)

// Store is the vector store facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	ProfileScroller
	Searcher
	ProfileWriter
	SchemaManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProfileScroller pages through the stored profiles of one title.
type ProfileScroller interface {
	Scroll(ctx context.Context, q *ScrollQuery) (*ScrollPage, error)
}

// Searcher runs filtered nearest-neighbour queries.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// ProfileWriter stores profile points.
type ProfileWriter interface {
	Upsert(ctx context.Context, points []ProfilePoint) error
}

// SchemaManager creates the collection or index profiles live in.
type SchemaManager interface {
	EnsureSchema(ctx context.Context, s *Schema) error
}

// KVStore provides simple key-value operations (embedding cache).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
