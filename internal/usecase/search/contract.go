package search

import (
	"context"
	"time"

	"github.com/WebRenew/unicon-search/internal/domain"
)

// Catalog defines the icon store contract consumed by the pipeline.
type Catalog interface {
	FindByVector(ctx context.Context, vector []float32, sourceID string, limit, offset int) ([]domain.SearchCandidate, error)
	FindByTextMatch(ctx context.Context, query, sourceID string, limit, offset int) ([]domain.IconRecord, error)
	FindByExactNames(ctx context.Context, names []string) ([]domain.IconRecord, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Expander rewrites a query into a richer search phrase.
type Expander interface {
	Expand(ctx context.Context, query string) (string, error)
}

// Config holds ranking and pagination policy.
type Config struct {
	MinQueryLen      int
	DefaultLimit     int
	MaxLimit         int
	SemanticWeight   float64
	LexicalWeight    float64
	CandidateCap     int
	ExpansionTimeout time.Duration
	ResultsTTL       time.Duration
	ResultsMaxSize   int
}

// Query is one search request after transport-level parsing.
type Query struct {
	Query    string
	Names    []string // explicit exact-name lookup, bypasses ranking
	SourceID string
	Limit    int
	Offset   int
	UseAI    bool
}

// Result is the assembled response for one search request.
type Result struct {
	Results       []domain.IconRecord `json:"results"`
	SearchType    domain.SearchType   `json:"searchType"`
	ExpandedQuery string              `json:"expandedQuery,omitempty"`
	Fallback      bool                `json:"fallback,omitempty"`
	HasMore       bool                `json:"hasMore"`
}

// WarmResult reports the outcome of warming one query.
type WarmResult struct {
	Query  string `json:"query"`
	Cached bool   `json:"cached"`
	Error  string `json:"error,omitempty"`
}
