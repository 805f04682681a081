// Package domain holds the icon catalog model and the value types shared
// across the search pipeline.
package domain

import (
	"encoding/json"
	"strings"
)

// SearchType identifies which search tier produced a result set.
type SearchType string

const (
	// SearchTypeExact is a direct lookup by normalized icon names.
	SearchTypeExact SearchType = "exact"
	// SearchTypeText is a lexical substring search over name/tags/category.
	SearchTypeText SearchType = "text"
	// SearchTypeSemantic is the full hybrid vector + lexical pipeline.
	SearchTypeSemantic SearchType = "semantic"
)

// IconRecord is an immutable catalog entry. IDs follow the
// "{sourceId}:{normalizedName}" convention (e.g. "lucide:arrow-right").
type IconRecord struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	NormalizedName string          `json:"normalizedName"`
	SourceID       string          `json:"sourceId"`
	Category       string          `json:"category,omitempty"`
	Tags           []string        `json:"tags"`
	ViewBox        string          `json:"viewBox"`
	Content        string          `json:"content"`
	PathData       json.RawMessage `json:"pathData,omitempty"`
	DefaultStroke  bool            `json:"defaultStroke"`
	DefaultFill    bool            `json:"defaultFill"`
	StrokeWidth    string          `json:"strokeWidth,omitempty"`
}

// SearchText returns the text that gets embedded for this icon:
// normalized-name words, category, then tags.
func (r IconRecord) SearchText() string {
	parts := make([]string, 0, len(r.Tags)+2)
	parts = append(parts, strings.ReplaceAll(r.NormalizedName, "-", " "))
	if r.Category != "" {
		parts = append(parts, r.Category)
	}
	parts = append(parts, r.Tags...)
	return strings.Join(parts, " ")
}

// Source describes one icon library in the catalog.
type Source struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	License    string `json:"license,omitempty"`
	TotalIcons int    `json:"totalIcons"`
}

// SearchCandidate is a per-request scoring envelope around an icon.
// Distance is the cosine distance reported by the vector store (lower is
// closer); HybridScore is populated by the re-ranker (higher is better).
type SearchCandidate struct {
	Icon        IconRecord
	Distance    float64
	HybridScore float64
}
