package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/pack"
)

// RuleSource is the deterministic FacetSource: round 1 emits every base
// facet of the active pack, round 2 emits the pack's refinement facets for
// each selected id.
type RuleSource struct{}

// NewRuleSource creates the deterministic source.
func NewRuleSource() *RuleSource {
	return &RuleSource{}
}

func (s *RuleSource) DiscoverRound1(_ context.Context, rawQuery string, p *pack.Pack, _ int) []domain.FacetCandidate {
	query := strings.ToLower(rawQuery)
	candidates := make([]domain.FacetCandidate, 0, len(p.Facets))
	for _, def := range p.Facets {
		facet := materializeDef(def)
		candidates = append(candidates, domain.FacetCandidate{
			Facet:  facet,
			Reason: reasonFromKeywords(query, facet, ""),
		})
	}
	return candidates
}

func (s *RuleSource) DiscoverRound2(_ context.Context, rawQuery string, p *pack.Pack, selections domain.Selections, _ []string, limit int) []domain.FacetCandidate {
	selectedIDs := selections.SelectedIDs()
	sort.Strings(selectedIDs)
	if len(selectedIDs) == 0 {
		// Nothing selected yet: walk the refinement table directly so the
		// round still yields something useful.
		for id := range p.Refinements {
			selectedIDs = append(selectedIDs, id)
		}
		sort.Strings(selectedIDs)
		if limit > 0 && len(selectedIDs) > limit {
			selectedIDs = selectedIDs[:limit]
		}
	}

	query := strings.ToLower(rawQuery)
	var candidates []domain.FacetCandidate
	for _, selectedID := range selectedIDs {
		for _, def := range p.Refinements[selectedID] {
			facet := materializeDef(def)
			candidates = append(candidates, domain.FacetCandidate{
				Facet:  facet,
				Reason: reasonFromKeywords(query, facet, selectedID),
			})
		}
	}
	return candidates
}

// materializeDef builds a Facet from a declarative pack definition.
func materializeDef(def pack.FacetDef) domain.Facet {
	id := def.ID
	if id == "" {
		id = slugify(def.Title)
	}
	title := def.Title
	if title == "" {
		title = id
	}
	question := def.Question
	if question == "" {
		question = "Choose an option"
	}

	var choices []domain.Choice
	for _, c := range def.Choices {
		if c.Value == "" {
			continue
		}
		subs := make([]string, 0, len(c.Subchoices))
		for _, sub := range c.Subchoices {
			if sub != "" {
				subs = append(subs, sub)
			}
		}
		choices = append(choices, domain.Choice{Value: c.Value, Subchoices: subs})
	}

	facet := domain.Facet{
		ID:              id,
		Title:           title,
		Question:        question,
		Keywords:        def.Keywords,
		SuggestedValues: append([]string(nil), def.SuggestedValues...),
		Choices:         choices,
		DefaultValue:    def.DefaultValue,
	}
	applySentinel(&facet)
	return facet
}

// applySentinel appends the "all options" choice once when any concrete
// choice exists and none already equals it case-insensitively, defaults
// suggested values to the choice values, and applies the same sentinel rule
// to suggested values independently.
func applySentinel(facet *domain.Facet) {
	if len(facet.Choices) > 0 && !containsFold(choiceValues(facet.Choices), domain.AllOptionsSentinel) {
		facet.Choices = append(facet.Choices, domain.Choice{Value: domain.AllOptionsSentinel, Subchoices: []string{}})
	}
	if len(facet.SuggestedValues) == 0 && len(facet.Choices) > 0 {
		facet.SuggestedValues = choiceValues(facet.Choices)
	}
	if len(facet.SuggestedValues) > 0 && !containsFold(facet.SuggestedValues, domain.AllOptionsSentinel) {
		facet.SuggestedValues = append(facet.SuggestedValues, domain.AllOptionsSentinel)
	}
}

func choiceValues(choices []domain.Choice) []string {
	values := make([]string, 0, len(choices))
	for _, c := range choices {
		values = append(values, c.Value)
	}
	return values
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

// reasonFromKeywords explains a candidate from the facet's own keyword
// matches against the lowercased query, falling back to a refinement
// lineage or a domain default explanation.
func reasonFromKeywords(query string, facet domain.Facet, selectedID string) string {
	var matches []string
	for _, kw := range facet.Keywords {
		if strings.Contains(query, strings.ToLower(kw)) {
			matches = append(matches, kw)
		}
	}
	if len(matches) > 0 {
		return "Matches keywords: " + strings.Join(matches, ", ")
	}
	if selectedID != "" {
		return fmt.Sprintf("Refines selection: %s", selectedID)
	}
	return "Default facet for this domain"
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(text string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(text), "_"), "_")
	if slug == "" {
		return "facet"
	}
	return slug
}
