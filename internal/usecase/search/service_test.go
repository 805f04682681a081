package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/WebRenew/unicon-search/internal/domain"
)

type mockCatalog struct {
	vectorFn    func(ctx context.Context, vector []float32, sourceID string, limit, offset int) ([]domain.SearchCandidate, error)
	textFn      func(ctx context.Context, query, sourceID string, limit, offset int) ([]domain.IconRecord, error)
	exactFn     func(ctx context.Context, names []string) ([]domain.IconRecord, error)
	vectorCalls int
	textCalls   int
	exactCalls  int
}

func (m *mockCatalog) FindByVector(ctx context.Context, vector []float32, sourceID string, limit, offset int) ([]domain.SearchCandidate, error) {
	m.vectorCalls++
	if m.vectorFn != nil {
		return m.vectorFn(ctx, vector, sourceID, limit, offset)
	}
	return nil, nil
}

func (m *mockCatalog) FindByTextMatch(ctx context.Context, query, sourceID string, limit, offset int) ([]domain.IconRecord, error) {
	m.textCalls++
	if m.textFn != nil {
		return m.textFn(ctx, query, sourceID, limit, offset)
	}
	return nil, nil
}

func (m *mockCatalog) FindByExactNames(ctx context.Context, names []string) ([]domain.IconRecord, error) {
	m.exactCalls++
	if m.exactFn != nil {
		return m.exactFn(ctx, names)
	}
	return nil, nil
}

// countingEmbedder is safe for concurrent use: the pipeline embeds the
// original query in a background goroutine.
type countingEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	calls int
	texts []string
}

func (m *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.vec, nil
}

func (m *countingEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *countingEmbedder) inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

type fixedExpander struct {
	result string
	err    error
	delay  time.Duration
	calls  int
}

func (m *fixedExpander) Expand(ctx context.Context, _ string) (string, error) {
	m.calls++
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.result, nil
}

func testConfig() Config {
	return Config{
		MinQueryLen:      3,
		DefaultLimit:     50,
		MaxLimit:         320,
		SemanticWeight:   0.6,
		LexicalWeight:    0.4,
		CandidateCap:     1000,
		ExpansionTimeout: 100 * time.Millisecond,
		ResultsTTL:       time.Minute,
		ResultsMaxSize:   100,
	}
}

func newTestService(catalog *mockCatalog, emb *countingEmbedder, exp Expander) *Service {
	return New(catalog, emb, exp, testConfig(), zap.NewNop())
}

func icon(id string) domain.IconRecord {
	name := id
	if i := strings.IndexByte(id, ':'); i >= 0 {
		name = id[i+1:]
	}
	return domain.IconRecord{ID: id, Name: name, NormalizedName: name}
}

func TestSearch_ExactNamesBypassScoring(t *testing.T) {
	catalog := &mockCatalog{
		exactFn: func(_ context.Context, names []string) ([]domain.IconRecord, error) {
			if len(names) != 2 {
				t.Errorf("expected 2 names, got %v", names)
			}
			return []domain.IconRecord{icon("lucide:home"), icon("lucide:user")}, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	svc := newTestService(catalog, emb, nil)

	res, err := svc.Search(context.Background(), Query{Names: []string{"home", "user"}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.SearchType != domain.SearchTypeExact {
		t.Errorf("searchType = %s, want exact", res.SearchType)
	}
	if len(res.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(res.Results))
	}
	if emb.callCount() != 0 {
		t.Errorf("exact lookup must not embed, calls = %d", emb.callCount())
	}
	if res.HasMore {
		t.Error("exact lookup must not report hasMore")
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	svc := newTestService(&mockCatalog{}, &countingEmbedder{}, nil)

	_, err := svc.Search(context.Background(), Query{Query: "   "})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearch_ShortQuerySkipsEmbedding(t *testing.T) {
	// "日本" is two runes but six bytes: the gate counts characters.
	for _, query := range []string{"ar", "日本"} {
		t.Run(query, func(t *testing.T) {
			catalog := &mockCatalog{
				textFn: func(_ context.Context, got, _ string, _, _ int) ([]domain.IconRecord, error) {
					if got != query {
						t.Errorf("text query = %q, want %q", got, query)
					}
					return []domain.IconRecord{icon("lucide:arrow-right")}, nil
				},
			}
			emb := &countingEmbedder{vec: []float32{0.1}}
			svc := newTestService(catalog, emb, nil)

			res, err := svc.Search(context.Background(), Query{Query: query})
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if res.SearchType != domain.SearchTypeText {
				t.Errorf("searchType = %s, want text", res.SearchType)
			}
			if res.Fallback {
				t.Error("short-query text search is not a fallback")
			}
			if emb.callCount() != 0 {
				t.Errorf("short query must never embed, calls = %d", emb.callCount())
			}
		})
	}
}

func TestSearch_EmbeddingFailureFallsBackToText(t *testing.T) {
	catalog := &mockCatalog{
		textFn: func(_ context.Context, _, _ string, _, _ int) ([]domain.IconRecord, error) {
			return []domain.IconRecord{icon("lucide:arrow-right")}, nil
		},
	}
	emb := &countingEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := newTestService(catalog, emb, nil)

	res, err := svc.Search(context.Background(), Query{Query: "arrow"})
	if err != nil {
		t.Fatalf("expected graceful fallback, got error: %v", err)
	}
	if res.SearchType != domain.SearchTypeText {
		t.Errorf("searchType = %s, want text", res.SearchType)
	}
	if !res.Fallback {
		t.Error("fallback flag must be set when embedding fails")
	}
	if catalog.vectorCalls != 0 {
		t.Errorf("vector store must not be queried after embed failure, calls = %d", catalog.vectorCalls)
	}
}

func TestSearch_HybridHappyPath(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, sourceID string, limit, offset int) ([]domain.SearchCandidate, error) {
			if sourceID != "lucide" {
				t.Errorf("sourceID = %q, want lucide", sourceID)
			}
			if offset != 0 {
				t.Errorf("store offset = %d, pagination must happen after re-ranking", offset)
			}
			if limit != 10 { // (0+5)*2
				t.Errorf("fetch limit = %d, want 10", limit)
			}
			return []domain.SearchCandidate{
				{Icon: icon("lucide:arrow-right"), Distance: 0.3},
				{Icon: icon("lucide:arrow-left"), Distance: 0.35},
				{Icon: icon("lucide:house"), Distance: 0.2},
			}, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1, 0.2}}
	svc := newTestService(catalog, emb, nil)

	res, err := svc.Search(context.Background(), Query{Query: "arrow", SourceID: "lucide", Limit: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.SearchType != domain.SearchTypeSemantic {
		t.Errorf("searchType = %s, want semantic", res.SearchType)
	}
	if res.ExpandedQuery != "" {
		t.Errorf("expandedQuery = %q, expected empty without expansion", res.ExpandedQuery)
	}
	if len(res.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res.Results))
	}
	// arrow-right and arrow-left outrank the semantically closer house.
	if res.Results[0].ID != "lucide:arrow-right" {
		t.Errorf("top result = %s, want lucide:arrow-right", res.Results[0].ID)
	}
	if res.HasMore {
		t.Error("hasMore must be false when results < limit")
	}
}

func TestSearch_ResultCacheIdempotence(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return []domain.SearchCandidate{{Icon: icon("lucide:arrow-right"), Distance: 0.3}}, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	svc := newTestService(catalog, emb, nil)

	q := Query{Query: "arrow", Limit: 10}
	first, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("first Search failed: %v", err)
	}
	second, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("second Search failed: %v", err)
	}

	if emb.callCount() != 1 || catalog.vectorCalls != 1 {
		t.Errorf("cached repeat must not hit upstream: embed=%d vector=%d", emb.callCount(), catalog.vectorCalls)
	}
	if len(first.Results) != len(second.Results) || first.Results[0].ID != second.Results[0].ID {
		t.Error("cached result differs from original")
	}
}

func TestSearch_CacheKeyedByPage(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return nil, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	svc := newTestService(catalog, emb, nil)

	if _, err := svc.Search(context.Background(), Query{Query: "arrow", Limit: 10, Offset: 0}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if _, err := svc.Search(context.Background(), Query{Query: "arrow", Limit: 10, Offset: 10}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if catalog.vectorCalls != 2 {
		t.Errorf("distinct pages must not share a cache entry, vector calls = %d", catalog.vectorCalls)
	}
}

func TestSearch_SynonymExpansionEmbedsExpandedText(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return []domain.SearchCandidate{{Icon: icon("lucide:check"), Distance: 0.2}}, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	exp := &fixedExpander{result: "should not be called"}
	svc := newTestService(catalog, emb, exp)

	res, err := svc.Search(context.Background(), Query{Query: "checkmark", UseAI: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.ExpandedQuery == "" || !strings.Contains(res.ExpandedQuery, "check-circle") {
		t.Errorf("expandedQuery = %q, expected synonym expansion with check-circle", res.ExpandedQuery)
	}
	if exp.calls != 0 {
		t.Errorf("AI expander must not run when synonyms hit, calls = %d", exp.calls)
	}

	var embeddedExpanded bool
	for _, text := range emb.inputs() {
		if strings.Contains(text, "check-circle") {
			embeddedExpanded = true
		}
	}
	if !embeddedExpanded {
		t.Errorf("expanded text was never embedded, embed inputs: %v", emb.inputs())
	}
}

func TestSearch_AIExpansionUsedWhenSynonymsMiss(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return nil, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	exp := &fixedExpander{result: "arrow direction chevron pointer navigation"}
	svc := newTestService(catalog, emb, exp)

	res, err := svc.Search(context.Background(), Query{Query: "arrow", UseAI: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.ExpandedQuery != "arrow direction chevron pointer navigation" {
		t.Errorf("expandedQuery = %q", res.ExpandedQuery)
	}
	if exp.calls != 1 {
		t.Errorf("expected 1 expander call, got %d", exp.calls)
	}
}

func TestSearch_AIExpansionNotUsedWithoutFlag(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return nil, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	exp := &fixedExpander{result: "expansion"}
	svc := newTestService(catalog, emb, exp)

	res, err := svc.Search(context.Background(), Query{Query: "arrow"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if exp.calls != 0 {
		t.Errorf("expander must stay idle without the opt-in flag, calls = %d", exp.calls)
	}
	if res.ExpandedQuery != "" {
		t.Errorf("expandedQuery = %q, want empty", res.ExpandedQuery)
	}
}

func TestSearch_SlowAIExpansionForfeitsExpansion(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return nil, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	exp := &fixedExpander{result: "too late", delay: time.Second}
	svc := newTestService(catalog, emb, exp)

	start := time.Now()
	res, err := svc.Search(context.Background(), Query{Query: "arrow", UseAI: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.ExpandedQuery != "" {
		t.Errorf("expandedQuery = %q, slow expansion must be forfeited", res.ExpandedQuery)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("request took %v, expansion timeout did not bound the wait", elapsed)
	}
}

func TestSearch_ExpandedEmbedFailureUsesOriginal(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return nil, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	// Embedding the expanded text fails; the original-query embedding
	// already in flight serves the request.
	failOnExpanded := &selectiveEmbedder{inner: emb, failFor: "checkmark check check-circle circle-check"}
	svc := New(catalog, failOnExpanded, nil, testConfig(), zap.NewNop())

	res, err := svc.Search(context.Background(), Query{Query: "checkmark"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.SearchType != domain.SearchTypeSemantic {
		t.Errorf("searchType = %s, want semantic via original embedding", res.SearchType)
	}
	if res.ExpandedQuery != "" {
		t.Errorf("expandedQuery = %q, must be empty when original embedding served", res.ExpandedQuery)
	}
}

type selectiveEmbedder struct {
	inner   Embedder
	failFor string
}

func (s *selectiveEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == s.failFor {
		return nil, domain.ErrEmbeddingProviderError
	}
	return s.inner.Embed(ctx, text)
}

func TestSearch_HasMoreWhenPageFull(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, limit, _ int) ([]domain.SearchCandidate, error) {
			out := make([]domain.SearchCandidate, limit)
			for i := range out {
				out[i] = domain.SearchCandidate{Icon: icon(unrelatedID(i)), Distance: float64(i) * 0.01}
			}
			return out, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	svc := newTestService(catalog, emb, nil)

	res, err := svc.Search(context.Background(), Query{Query: "widget", Limit: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res.Results) != 5 {
		t.Fatalf("expected full page of 5, got %d", len(res.Results))
	}
	if !res.HasMore {
		t.Error("hasMore must be true when the page is full")
	}
}

func TestSearch_LimitClampedToMax(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, limit, _ int) ([]domain.SearchCandidate, error) {
			if limit != 640 { // (0+320)*2
				t.Errorf("fetch limit = %d, want 640 after clamping limit to 320", limit)
			}
			return nil, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	svc := newTestService(catalog, emb, nil)

	if _, err := svc.Search(context.Background(), Query{Query: "arrow", Limit: 5000}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
}

func TestWarmCache(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return []domain.SearchCandidate{{Icon: icon("lucide:home"), Distance: 0.1}}, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	svc := newTestService(catalog, emb, nil)

	results := svc.WarmCache(context.Background(), []string{"home", "user"})
	if len(results) != 2 {
		t.Fatalf("expected 2 warm results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Cached {
			t.Errorf("query %q not cached: %s", r.Query, r.Error)
		}
	}

	// Warmed queries must now be served from cache.
	before := catalog.vectorCalls
	if _, err := svc.Search(context.Background(), Query{Query: "home", Limit: 50}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if catalog.vectorCalls != before {
		t.Error("warmed query still hit the vector store")
	}
}

func TestWarmCache_DefaultsToPopularQueries(t *testing.T) {
	catalog := &mockCatalog{
		vectorFn: func(_ context.Context, _ []float32, _ string, _, _ int) ([]domain.SearchCandidate, error) {
			return nil, nil
		},
	}
	emb := &countingEmbedder{vec: []float32{0.1}}
	svc := newTestService(catalog, emb, nil)

	results := svc.WarmCache(context.Background(), nil)
	if len(results) != len(PopularQueries) {
		t.Fatalf("expected %d warm results, got %d", len(PopularQueries), len(results))
	}
}
