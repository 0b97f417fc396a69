// Package pack loads declarative domain configuration bundles and routes
// queries to the best-matching one.
package pack

import "strings"

// UniversalPack is the fallback pack name when no domain scores.
const UniversalPack = "universal"

// Capability names a pack-level feature switch consumed by the orchestrator
// and the prompt compiler.
const (
	CapabilityCatalog      = "catalog"
	CapabilityMemberSearch = "member_search"
)

// ChoiceDef is the declarative form of a facet choice.
type ChoiceDef struct {
	Value      string   `json:"value"`
	Subchoices []string `json:"subchoices"`
}

// FacetDef is the declarative form of a facet as stored in a pack file.
type FacetDef struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Question        string      `json:"question"`
	Keywords        []string    `json:"keywords"`
	SuggestedValues []string    `json:"suggested_values"`
	Choices         []ChoiceDef `json:"choices"`
	DefaultValue    string      `json:"default_value"`
}

// Pack is a named, domain-specific bundle of keywords and facet
// definitions. Immutable once loaded.
type Pack struct {
	Domain       string                `json:"domain"`
	Keywords     []string              `json:"keywords"`
	Capabilities []string              `json:"capabilities"`
	Facets       []FacetDef            `json:"facets"`
	Refinements  map[string][]FacetDef `json:"refinements"`
}

// HasCapability reports whether the pack declares the named capability.
func (p *Pack) HasCapability(name string) bool {
	for _, c := range p.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// SearchableTerms returns every lowercased term the router scores against:
// keywords, facet titles and questions, choice values and subchoice values.
func (p *Pack) SearchableTerms() []string {
	var terms []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			terms = append(terms, s)
		}
	}
	for _, kw := range p.Keywords {
		add(kw)
	}
	for _, f := range p.Facets {
		add(f.Title)
		add(f.Question)
		for _, c := range f.Choices {
			add(c.Value)
			for _, sub := range c.Subchoices {
				add(sub)
			}
		}
	}
	return terms
}
