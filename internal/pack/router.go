package pack

import "strings"

// Router selects the single best-matching pack for a query. Resolution
// happens exactly once per request creation; the chosen pack name is then
// pinned on the request record.
type Router struct {
	store *Store
}

// NewRouter creates a router over the given store.
func NewRouter(store *Store) *Router {
	return &Router{store: store}
}

// ChoosePack picks a pack name for the query.
//
// A domain hint, when given, is trimmed and lowercased and accepted if it
// exactly matches a pack name, is a substring of one, contains one, or
// matches one of the pack's keywords; the first such match in enumeration
// order wins. Without a usable hint, every non-universal pack is scored by
// how many of its searchable terms appear as substrings of the lowercased
// query; the strictly highest score wins, ties keep the first-scored pack,
// and an all-zero score yields the universal pack.
func (r *Router) ChoosePack(rawQuery, domainHint string) string {
	names := r.store.Names()

	if hint := strings.ToLower(strings.TrimSpace(domainHint)); hint != "" {
		for _, name := range names {
			if name == hint || strings.Contains(name, hint) || strings.Contains(hint, name) {
				return name
			}
			p, err := r.store.Load(name)
			if err != nil {
				continue
			}
			for _, kw := range p.Keywords {
				if strings.ToLower(kw) == hint {
					return name
				}
			}
		}
	}

	query := strings.ToLower(rawQuery)
	best := ""
	bestScore := 0
	for _, name := range names {
		if name == UniversalPack {
			continue
		}
		p, err := r.store.Load(name)
		if err != nil {
			continue
		}
		score := 0
		for _, term := range p.SearchableTerms() {
			if strings.Contains(query, term) {
				score++
			}
		}
		if score > bestScore {
			best = name
			bestScore = score
		}
	}
	if bestScore == 0 {
		return UniversalPack
	}
	return best
}
