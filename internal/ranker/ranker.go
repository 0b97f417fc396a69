// Package ranker orders facet candidates by relevance before the caller
// truncates to a display limit. Ranking itself never drops a candidate.
package ranker

import (
	"context"
	"sort"
	"strings"

	"github.com/qda-labs/funnel/internal/domain"
)

// Ranker produces a full reordering of the candidate list.
type Ranker interface {
	Rank(ctx context.Context, rawQuery string, candidates []domain.FacetCandidate) []domain.FacetCandidate
}

// Heuristic ranks deterministically: descending by (keyword hits in the
// query counted against the facet's own keyword list, has-default flag),
// ties preserving input order.
type Heuristic struct{}

// NewHeuristic creates the deterministic ranker.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Rank(_ context.Context, rawQuery string, candidates []domain.FacetCandidate) []domain.FacetCandidate {
	query := strings.ToLower(rawQuery)
	ranked := append([]domain.FacetCandidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		hitsI, defI := score(query, ranked[i])
		hitsJ, defJ := score(query, ranked[j])
		if hitsI != hitsJ {
			return hitsI > hitsJ
		}
		return defI > defJ
	})
	return ranked
}

func score(query string, candidate domain.FacetCandidate) (hits, hasDefault int) {
	for _, kw := range candidate.Facet.Keywords {
		if strings.Contains(query, strings.ToLower(kw)) {
			hits++
		}
	}
	if candidate.Facet.DefaultValue != "" {
		hasDefault = 1
	}
	return hits, hasDefault
}
