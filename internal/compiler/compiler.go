// Package compiler assembles the final instruction bundle from the query,
// the accumulated selections, applied defaults and optional matching
// results. Output is deterministic: identical inputs yield byte-identical
// sections in the same order, and no section title repeats.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/matching"
)

const defaultInstructions = "Answer the user's query precisely. Treat every selected facet as a hard constraint on scope, and state any assumption you have to make for unspecified facets."

const memoInstructions = "You are drafting an internal legal memo from a junior associate to a senior partner. " +
	"Tone: neutral, predictive, risk-aware. Use headings: Question Presented, Brief Answer, " +
	"Facts, Assumptions & Unknowns, Applicable Law, Analysis (with counterarguments), Risks, " +
	"and Next Steps. Missing information must appear in Assumptions & Unknowns and be " +
	"reflected in Next Steps. Use a bulleted list under Assumptions & Unknowns."

const specialInstructions = "Cite only the items listed above; do not invent services, programs or businesses. " +
	"For each recommendation, explain why the user's profile fits the eligibility criteria. " +
	"Prioritize Quartiers d'Affaires flagship programs when several items fit equally well."

const noMemberResults = "No member businesses matched the search criteria. Tell the user no directory match was found and suggest broadening the sector, department or keyword filters."

// Input carries everything one compile call depends on. At most one of
// ServiceResults / member-search fields is populated by the orchestrator,
// depending on the active pack's capability and the search_type selection.
type Input struct {
	RawQuery        string
	Selections      domain.Selections
	ProceedDefaults map[string]string

	// UserInstructions overrides the default instruction block when
	// non-empty.
	UserInstructions string

	// ServiceResults is the catalog shortlist; nil when the catalog branch
	// is inactive (an empty non-nil slice still renders the section).
	ServiceResults []matching.ScoredService

	// MemberSearch marks the member branch active; MemberResults may then
	// be empty, which substitutes a single no-results section.
	MemberSearch  bool
	MemberResults []matching.ScoredMember
}

// Compiler builds prompt section bundles.
type Compiler struct{}

// New creates a compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile assembles the ordered section list.
func (c *Compiler) Compile(in Input) []domain.PromptSection {
	sections := []domain.PromptSection{
		{Title: "User Query", Content: strings.TrimSpace(in.RawQuery)},
		{Title: "Selected Facets", Content: selectionLines(in.Selections, in.ProceedDefaults)},
	}

	switch {
	case in.ServiceResults != nil:
		sections = append(sections,
			domain.PromptSection{Title: "Matching Services", Content: matching.FormatServicesForPrompt(in.ServiceResults, 5)},
			domain.PromptSection{Title: "Special Instructions", Content: specialInstructions},
		)
	case in.MemberSearch:
		if len(in.MemberResults) == 0 {
			sections = append(sections, domain.PromptSection{Title: "Member Search Results", Content: noMemberResults})
		} else {
			sections = append(sections,
				domain.PromptSection{Title: "Member Search Results", Content: matching.FormatMembersForPrompt(in.MemberResults, 5)},
				domain.PromptSection{Title: "Special Instructions", Content: specialInstructions},
			)
		}
	}

	sections = append(sections, domain.PromptSection{Title: "Instructions", Content: instructions(in)})
	return sections
}

// selectionLines renders one line per explicit selection followed by one
// line per pack default not explicitly overridden.
func selectionLines(selections domain.Selections, proceedDefaults map[string]string) string {
	var lines []string

	ids := selections.SelectedIDs()
	sort.Strings(ids)
	for _, id := range ids {
		value := "unspecified"
		if v := selections[id]; v != nil {
			value = *v
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", id, value))
	}

	defaultIDs := make([]string, 0, len(proceedDefaults))
	for id := range proceedDefaults {
		if _, overridden := selections[id]; !overridden {
			defaultIDs = append(defaultIDs, id)
		}
	}
	sort.Strings(defaultIDs)
	for _, id := range defaultIDs {
		lines = append(lines, fmt.Sprintf("- %s: %s (default)", id, proceedDefaults[id]))
	}

	if len(lines) == 0 {
		return "None"
	}
	return strings.Join(lines, "\n")
}

func instructions(in Input) string {
	base := defaultInstructions
	if override := strings.TrimSpace(in.UserInstructions); override != "" {
		base = override
	}
	if wantsMemo(in.Selections) {
		return base + "\n\n" + memoInstructions
	}
	return base
}

// wantsMemo reports whether the deliverable-type selection indicates a
// memo-like output.
func wantsMemo(selections domain.Selections) bool {
	value := strings.ToLower(selections.Value("deliverable_type"))
	return strings.Contains(value, "memo") || strings.Contains(value, "mémo")
}
