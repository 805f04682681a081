package health

import "context"

// CatalogPinger checks icon catalog availability.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks the shared embedding-cache backend.
type CachePinger interface {
	Ping(ctx context.Context) error
}
