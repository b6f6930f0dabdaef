package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an optional dependency such as the metadata or embedding provider.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
