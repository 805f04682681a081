// Package health aggregates component checks into one readiness report.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is down; search still
	// works through the lexical fallback tiers.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog is unreachable; no search tier can
	// serve requests.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks. The catalog is a hard dependency;
// embedding provider and cache backend only degrade.
type Service struct {
	catalog   CatalogPinger
	embedding EmbeddingChecker
	cache     CachePinger
}

// New creates a Service. embedding and cache can be nil.
func New(catalog CatalogPinger, embedding EmbeddingChecker, cache CachePinger) *Service {
	return &Service{catalog: catalog, embedding: embedding, cache: cache}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.catalog.Ping(ctx); err != nil {
		checks["catalog"] = CheckError
		status = Unhealthy
	} else {
		checks["catalog"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["cache"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
