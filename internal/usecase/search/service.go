// Package search implements the hybrid ranking pipeline: vector
// similarity blended with lexical boosts, query expansion, re-rank
// pagination, and a short-lived result cache.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/WebRenew/unicon-search/internal/async"
	"github.com/WebRenew/unicon-search/internal/cache"
	"github.com/WebRenew/unicon-search/internal/domain"
	"github.com/WebRenew/unicon-search/internal/metrics"
	"github.com/WebRenew/unicon-search/internal/synonyms"
)

// PopularQueries are the common searches pre-warmed by WarmCache.
var PopularQueries = []string{
	"home", "user", "settings", "search", "notification",
	"menu", "close", "check", "arrow", "heart",
	"star", "upload", "download", "edit", "delete",
	"calendar", "mail", "phone", "location", "lock",
}

// Service orchestrates the search tiers: exact-name lookup, short-query
// lexical search, and the full hybrid pipeline.
type Service struct {
	catalog  Catalog
	embedder Embedder
	expander Expander // nil when AI expansion is not configured
	results  *cache.Cache[Result]
	cfg      Config
	logger   *zap.Logger
}

// New creates a search service. expander may be nil; AI expansion is
// then skipped regardless of the request flag.
func New(catalog Catalog, embedder Embedder, expander Expander, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		catalog:  catalog,
		embedder: embedder,
		expander: expander,
		results:  cache.New[Result](cfg.ResultsTTL, cfg.ResultsMaxSize),
		cfg:      cfg,
		logger:   logger,
	}
}

// Search resolves one request through the tier chain. The only errors
// returned are invalid input and total catalog failure; provider
// failures degrade to lexical search instead.
func (s *Service) Search(ctx context.Context, q Query) (Result, error) {
	q = s.normalize(q)

	start := time.Now()

	if len(q.Names) > 0 {
		res, err := s.exactSearch(ctx, q)
		s.observe(res, err, start)
		return res, err
	}

	if q.Query == "" {
		return Result{}, domain.ErrInvalidQuery
	}

	if utf8.RuneCountInString(q.Query) < s.cfg.MinQueryLen {
		res, err := s.textSearch(ctx, q, false)
		s.observe(res, err, start)
		return res, err
	}

	res, err := s.hybridSearch(ctx, q)
	s.observe(res, err, start)
	return res, err
}

// WarmCache pre-populates the embedding and result caches for a list of
// queries. An empty list warms PopularQueries. Individual failures are
// reported per query, never aborting the batch.
func (s *Service) WarmCache(ctx context.Context, queries []string) []WarmResult {
	if len(queries) == 0 {
		queries = PopularQueries
	}

	results := make([]WarmResult, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}

		res, err := s.Search(ctx, Query{Query: q, Limit: s.cfg.DefaultLimit})
		if err != nil {
			results = append(results, WarmResult{Query: q, Error: err.Error()})
			continue
		}
		results = append(results, WarmResult{Query: q, Cached: res.SearchType == domain.SearchTypeSemantic})
	}
	return results
}

// PruneCaches drops expired result-cache entries.
func (s *Service) PruneCaches() {
	s.results.Prune()
}

func (s *Service) normalize(q Query) Query {
	q.Query = strings.TrimSpace(q.Query)
	if q.Limit <= 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	if q.Limit > s.cfg.MaxLimit {
		q.Limit = s.cfg.MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// exactSearch bypasses all scoring and the result cache.
func (s *Service) exactSearch(ctx context.Context, q Query) (Result, error) {
	icons, err := s.catalog.FindByExactNames(ctx, q.Names)
	if err != nil {
		return Result{}, fmt.Errorf("exact lookup: %w", err)
	}
	return Result{
		Results:    icons,
		SearchType: domain.SearchTypeExact,
	}, nil
}

func (s *Service) textSearch(ctx context.Context, q Query, fallback bool) (Result, error) {
	icons, err := s.catalog.FindByTextMatch(ctx, q.Query, q.SourceID, q.Limit, q.Offset)
	if err != nil {
		return Result{}, fmt.Errorf("text search: %w", err)
	}
	return Result{
		Results:    icons,
		SearchType: domain.SearchTypeText,
		Fallback:   fallback,
		HasMore:    len(icons) == q.Limit,
	}, nil
}

func (s *Service) hybridSearch(ctx context.Context, q Query) (Result, error) {
	key := s.resultKey(q)

	if res, ok := s.results.GetKey(key); ok {
		metrics.CacheTotal.WithLabelValues("results", "hit").Inc()
		return res, nil
	}
	metrics.CacheTotal.WithLabelValues("results", "miss").Inc()

	searchQuery, vector, err := s.expandAndEmbed(ctx, q)
	if err != nil {
		s.logger.Warn("Embedding failed, falling back to text search",
			zap.String("query", q.Query), zap.Error(err))
		return s.textSearch(ctx, q, true)
	}

	fetchLimit := FetchLimit(q.Offset, q.Limit, s.cfg.CandidateCap)
	candidates, err := s.catalog.FindByVector(ctx, vector, q.SourceID, fetchLimit, 0)
	if err != nil {
		return Result{}, fmt.Errorf("vector search: %w", err)
	}

	page := Rerank(candidates, q.Query, q.Limit, q.Offset, s.cfg.SemanticWeight, s.cfg.LexicalWeight)

	icons := make([]domain.IconRecord, len(page))
	for i, c := range page {
		icons[i] = c.Icon
	}

	res := Result{
		Results:    icons,
		SearchType: domain.SearchTypeSemantic,
		HasMore:    len(icons) == q.Limit,
	}
	if searchQuery != q.Query {
		res.ExpandedQuery = searchQuery
	}

	s.results.SetKey(key, res)
	return res, nil
}

// expandAndEmbed resolves the text to embed and its vector. The original
// query's embedding is requested up front; when AI expansion is in play
// it races a timeout concurrently with that call, so the optional AI
// step adds no serial latency. Synonym expansion is free and always
// tried first.
func (s *Service) expandAndEmbed(ctx context.Context, q Query) (string, []float32, error) {
	type embedOutcome struct {
		vector []float32
		err    error
	}
	originalCh := make(chan embedOutcome, 1)
	go func() {
		vec, err := s.embedder.Embed(ctx, q.Query)
		originalCh <- embedOutcome{vector: vec, err: err}
	}()

	searchQuery := synonyms.Expand(q.Query)

	if searchQuery == q.Query && q.UseAI && s.expander != nil {
		expanded := async.RaceTimeout(ctx, s.cfg.ExpansionTimeout, "", func(ctx context.Context) (string, error) {
			return s.expander.Expand(ctx, q.Query)
		})
		if expanded != "" {
			searchQuery = expanded
		}
	}

	if searchQuery != q.Query {
		vec, err := s.embedder.Embed(ctx, searchQuery)
		if err == nil {
			return searchQuery, vec, nil
		}
		s.logger.Warn("Failed to embed expanded query, using original",
			zap.String("expanded", searchQuery), zap.Error(err))
	}

	out := <-originalCh
	if out.err != nil {
		return "", nil, out.err
	}
	return q.Query, out.vector, nil
}

func (s *Service) resultKey(q Query) string {
	return cache.Key(cache.Params{
		"query":  strings.ToLower(q.Query),
		"source": q.SourceID,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

func (s *Service) observe(res Result, err error, start time.Time) {
	if err != nil {
		return
	}
	searchType := string(res.SearchType)
	fallback := "false"
	if res.Fallback {
		fallback = "true"
	}
	metrics.SearchRequestsTotal.WithLabelValues(searchType, fallback).Inc()
	metrics.SearchDuration.WithLabelValues(searchType).Observe(time.Since(start).Seconds())
}
