package domain

// AllOptionsSentinel is appended to a facet's choices and suggested values
// when any concrete choice exists and none already equals it
// (case-insensitive).
const AllOptionsSentinel = "all options"

// Choice is a single selectable value for a facet, optionally narrowed by
// ordered subchoices.
type Choice struct {
	Value      string   `json:"value"`
	Subchoices []string `json:"subchoices"`
}

// Facet is a single decision axis offered to the user as a clarifying
// question. Facets are value objects constructed fresh per discovery call;
// they hold no shared mutable state.
type Facet struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Question        string   `json:"question"`
	Keywords        []string `json:"keywords"`
	SuggestedValues []string `json:"suggested_values"`
	Choices         []Choice `json:"choices"`
	DefaultValue    string   `json:"default_value,omitempty"`
}

// FacetCandidate pairs a facet with a human-readable reason it was
// proposed. Reason is never empty: it is a keyword-match explanation, a
// refinement-lineage explanation, a model-supplied explanation, or a domain
// default explanation.
type FacetCandidate struct {
	Facet  Facet  `json:"facet"`
	Reason string `json:"reason"`
}

// Selections maps facet id to the value the user chose; a nil entry means
// the facet was selected but left unspecified. Built fresh from the
// caller's selection list each round.
type Selections map[string]*string

// SelectedIDs returns the selection keys in no particular order.
func (s Selections) SelectedIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// Value returns the selected value for id, or "" when absent or unspecified.
func (s Selections) Value(id string) string {
	if v, ok := s[id]; ok && v != nil {
		return *v
	}
	return ""
}

// PromptSection is one titled block of the compiled instruction bundle.
// Sections are assembled fresh per answer call and never persisted directly;
// only a serialized snapshot is captured into a COMPILE_PROMPT trace event.
type PromptSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
