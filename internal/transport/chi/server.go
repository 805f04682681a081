// Package chi exposes the search API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/WebRenew/unicon-search/internal/domain"
	"github.com/WebRenew/unicon-search/internal/logger"
	healthuc "github.com/WebRenew/unicon-search/internal/usecase/health"
	searchuc "github.com/WebRenew/unicon-search/internal/usecase/search"
)

// Browser lists catalog entries outside the ranked search path.
type Browser interface {
	Browse(ctx context.Context, query, sourceID string, limit, offset int) ([]domain.IconRecord, error)
	Sources(ctx context.Context) ([]domain.Source, error)
}

// Server holds the HTTP handlers for the search API.
type Server struct {
	search       *searchuc.Service
	browser      Browser
	health       *healthuc.Service
	defaultLimit int
	maxLimit     int
	adminToken   string
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	browser Browser,
	health *healthuc.Service,
	defaultLimit, maxLimit int,
	adminToken string,
) *Server {
	return &Server{
		search:       search,
		browser:      browser,
		health:       health,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		adminToken:   adminToken,
	}
}

// Routes mounts all API routes on a fresh router. Global middleware
// (recovery, request IDs, logging, metrics) is the caller's concern.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearchGet)
		r.Post("/search", s.handleSearchPost)
		r.Get("/icons", s.handleIcons)
		r.Get("/sources", s.handleSources)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(s.adminToken))
			r.Get("/warm-cache", s.handleWarmCacheList)
			r.Post("/warm-cache", s.handleWarmCache)
		})
	})

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// handleSearchGet handles GET /api/search.
func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()

	q := searchuc.Query{
		Query:    qp.Get("query"),
		SourceID: qp.Get("sourceId"),
		Limit:    s.parseInt(qp.Get("limit"), s.defaultLimit),
		Offset:   s.parseInt(qp.Get("offset"), 0),
		UseAI:    qp.Get("useAI") == "true",
	}
	if names := qp.Get("names"); names != "" {
		q.Names = splitNames(names)
	}

	s.runSearch(w, r, q)
}

// searchRequest is the POST /api/search body.
type searchRequest struct {
	Query    string   `json:"query"`
	Names    []string `json:"names,omitempty"`
	SourceID string   `json:"sourceId,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
	UseAI    bool     `json:"useAI,omitempty"`
}

// handleSearchPost handles POST /api/search.
func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}

	s.runSearch(w, r, searchuc.Query{
		Query:    req.Query,
		Names:    req.Names,
		SourceID: req.SourceID,
		Limit:    limit,
		Offset:   req.Offset,
		UseAI:    req.UseAI,
	})
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, q searchuc.Query) {
	if strings.TrimSpace(q.Query) == "" && len(q.Names) == 0 {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	res, err := s.search.Search(r.Context(), q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, "Query is required")
			return
		}
		s.requestLogger(r).Error("Search failed", zap.String("query", q.Query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// iconsResponse is the GET /api/icons page shape.
type iconsResponse struct {
	Icons   []domain.IconRecord `json:"icons"`
	HasMore bool                `json:"hasMore"`
}

// handleIcons handles GET /api/icons: unranked catalog browsing with an
// optional substring filter, or exact lookup when "names" is given.
// Accepts q/source as well as the query/sourceId spellings used by
// /api/search; source=all means no filter.
func (s *Server) handleIcons(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	limit := s.parseInt(qp.Get("limit"), s.defaultLimit)
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	offset := s.parseInt(qp.Get("offset"), 0)

	if names := splitNames(qp.Get("names")); len(names) > 0 {
		res, err := s.search.Search(r.Context(), searchuc.Query{Names: names, Limit: limit})
		if err != nil {
			s.requestLogger(r).Error("Exact lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to list icons")
			return
		}
		icons := res.Results
		if icons == nil {
			icons = []domain.IconRecord{}
		}
		writeJSON(w, http.StatusOK, iconsResponse{Icons: icons, HasMore: false})
		return
	}

	query := qp.Get("q")
	if query == "" {
		query = qp.Get("query")
	}
	source := qp.Get("source")
	if source == "" {
		source = qp.Get("sourceId")
	}
	if source == "all" {
		source = ""
	}

	icons, err := s.browser.Browse(r.Context(), query, source, limit, offset)
	if err != nil {
		s.requestLogger(r).Error("Browse failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list icons")
		return
	}

	if icons == nil {
		icons = []domain.IconRecord{}
	}
	writeJSON(w, http.StatusOK, iconsResponse{
		Icons:   icons,
		HasMore: len(icons) == limit,
	})
}

// handleSources handles GET /api/sources.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.browser.Sources(r.Context())
	if err != nil {
		s.requestLogger(r).Error("Sources failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list sources")
		return
	}

	if sources == nil {
		sources = []domain.Source{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

// handleWarmCache handles POST /api/admin/warm-cache. A "queries" query
// parameter overrides the default popular-query list.
func (s *Server) handleWarmCache(w http.ResponseWriter, r *http.Request) {
	var queries []string
	if raw := r.URL.Query().Get("queries"); raw != "" {
		queries = splitNames(raw)
	}

	results := s.search.WarmCache(r.Context(), queries)

	cached, failed := 0, 0
	for _, res := range results {
		if res.Cached {
			cached++
		} else {
			failed++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cached":  cached,
		"failed":  failed,
		"results": results,
	})
}

// handleWarmCacheList handles GET /api/admin/warm-cache.
func (s *Server) handleWarmCacheList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"popularQueries": searchuc.PopularQueries,
		"count":          len(searchuc.PopularQueries),
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// requestLogger returns the request-scoped logger installed by the
// logging middleware, carrying the request ID. Routes mounted without
// the middleware chain log to a nop.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context())
}

func (s *Server) parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func splitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
