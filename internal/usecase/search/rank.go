package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/WebRenew/unicon-search/internal/domain"
)

// Boost increments awarded by exactMatchBoost. The blend weights live in
// Config; these are fixed policy constants.
const (
	boostNameExact    = 0.5
	boostNamePrefix   = 0.4
	boostNameContains = 0.3
	boostNameToken    = 0.1
	boostTagExact     = 0.25
	boostTagContains  = 0.15
	boostTagToken     = 0.05
	boostCatExact     = 0.2
	boostCatContains  = 0.1
	boostCap          = 1.0
)

var tokenSplit = regexp.MustCompile(`[-_\s]+`)

// FetchLimit sizes the candidate window requested from the vector store:
// double the required page depth, capped. The over-fetch leaves headroom
// for lexical boosting to reorder candidates without starving the tail
// of the requested page.
func FetchLimit(offset, limit, windowCap int) int {
	n := (offset + limit) * 2
	if n > windowCap {
		return windowCap
	}
	return n
}

// Rerank blends semantic similarity with lexical boosts, sorts the
// candidate window, and slices the requested page. The boost is always
// computed against the original, unexpanded query: expansion widens
// retrieval, it must not skew precision. Sorting is stable so that equal
// scores keep the store's distance order.
func Rerank(
	candidates []domain.SearchCandidate, originalQuery string,
	limit, offset int, semanticWeight, lexicalWeight float64,
) []domain.SearchCandidate {
	for i := range candidates {
		semantic := 1 - candidates[i].Distance
		if semantic < 0 {
			semantic = 0
		} else if semantic > 1 {
			semantic = 1
		}

		icon := candidates[i].Icon
		boost := exactMatchBoost(icon.NormalizedName, icon.Category, icon.Tags, originalQuery)
		candidates[i].HybridScore = semantic*semanticWeight + boost*lexicalWeight
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].HybridScore > candidates[j].HybridScore
	})

	if offset >= len(candidates) {
		return nil
	}
	end := offset + limit
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[offset:end]
}

// exactMatchBoost scores lexical agreement between an icon and the
// original user query. Case-insensitive throughout; the total is capped
// at 1.
func exactMatchBoost(name, category string, tags []string, query string) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	name = strings.ToLower(name)
	category = strings.ToLower(category)
	if query == "" {
		return 0
	}

	var boost float64

	switch {
	case name == query:
		boost += boostNameExact
	case strings.HasPrefix(name, query):
		boost += boostNamePrefix
	case strings.Contains(name, query):
		boost += boostNameContains
	}

	queryTokens := tokenSplit.Split(query, -1)
	nameTokens := map[string]bool{}
	for _, t := range tokenSplit.Split(name, -1) {
		if t != "" {
			nameTokens[t] = true
		}
	}
	for _, qt := range queryTokens {
		if qt != "" && nameTokens[qt] {
			boost += boostNameToken
		}
	}

	lowerTags := make([]string, len(tags))
	for i, tag := range tags {
		lowerTags[i] = strings.ToLower(tag)
	}

	tagHit := 0.0
	for _, tag := range lowerTags {
		if tag == query {
			tagHit = boostTagExact
			break
		}
	}
	if tagHit == 0 {
		for _, tag := range lowerTags {
			if strings.Contains(tag, query) {
				tagHit = boostTagContains
				break
			}
		}
	}
	boost += tagHit

	for _, qt := range queryTokens {
		if qt == "" {
			continue
		}
		for _, tag := range lowerTags {
			if tag == qt || strings.Contains(tag, qt) {
				boost += boostTagToken
				break
			}
		}
	}

	if category != "" {
		if category == query {
			boost += boostCatExact
		} else if strings.Contains(category, query) {
			boost += boostCatContains
		}
	}

	if boost > boostCap {
		return boostCap
	}
	return boost
}
