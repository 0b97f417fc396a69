// Package discovery produces facet candidates for round-1 (fresh query)
// and round-2+ (refinement) of the clarification dialogue.
package discovery

import (
	"context"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/pack"
)

// FacetSource proposes facet candidates. Two implementations exist: a
// deterministic pack-lookup source and a model-backed source. The caller
// picks one via configuration; there is no automatic fallback between them.
type FacetSource interface {
	// DiscoverRound1 proposes facets for a fresh query.
	DiscoverRound1(ctx context.Context, rawQuery string, p *pack.Pack, limit int) []domain.FacetCandidate

	// DiscoverRound2 proposes follow-up facets for the current selections.
	// excludeIDs lists facet ids already shown; the exclusion is advisory
	// for the model-backed source and callers must not assume it is
	// enforced.
	DiscoverRound2(ctx context.Context, rawQuery string, p *pack.Pack, selections domain.Selections, excludeIDs []string, limit int) []domain.FacetCandidate
}
