package compiler

import (
	"reflect"
	"strings"
	"testing"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/matching"
)

func strPtr(s string) *string { return &s }

func titles(sections []domain.PromptSection) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Title)
	}
	return out
}

func sectionByTitle(t *testing.T, sections []domain.PromptSection, title string) domain.PromptSection {
	t.Helper()
	for _, s := range sections {
		if s.Title == title {
			return s
		}
	}
	t.Fatalf("no %q section in %v", title, titles(sections))
	return domain.PromptSection{}
}

func TestCompile_BaseShape(t *testing.T) {
	c := New()
	got := c.Compile(Input{
		RawQuery: "  How do I register a bakery?  ",
		Selections: domain.Selections{
			"audience": strPtr("Beginners"),
		},
		ProceedDefaults: map[string]string{
			"depth":    "Overview",
			"audience": "Experts",
		},
	})

	want := []string{"User Query", "Selected Facets", "Instructions"}
	if !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("section titles = %v, want %v", titles(got), want)
	}
	if got[0].Content != "How do I register a bakery?" {
		t.Errorf("query not trimmed: %q", got[0].Content)
	}

	facets := got[1].Content
	wantFacets := "- audience: Beginners\n- depth: Overview (default)"
	if facets != wantFacets {
		t.Errorf("selected facets = %q, want %q", facets, wantFacets)
	}

	if got[2].Content != defaultInstructions {
		t.Errorf("instructions = %q, want default block", got[2].Content)
	}
}

func TestCompile_NoSelections(t *testing.T) {
	c := New()
	got := c.Compile(Input{RawQuery: "q"})
	if content := sectionByTitle(t, got, "Selected Facets").Content; content != "None" {
		t.Errorf("selected facets = %q, want None", content)
	}
}

func TestCompile_NilSelectionRendersUnspecified(t *testing.T) {
	c := New()
	got := c.Compile(Input{
		RawQuery:   "q",
		Selections: domain.Selections{"location": nil},
	})
	if content := sectionByTitle(t, got, "Selected Facets").Content; content != "- location: unspecified" {
		t.Errorf("selected facets = %q", content)
	}
}

func TestCompile_IsDeterministic(t *testing.T) {
	c := New()
	in := Input{
		RawQuery: "q",
		Selections: domain.Selections{
			"zeta":  strPtr("z"),
			"alpha": strPtr("a"),
			"mid":   strPtr("m"),
		},
		ProceedDefaults: map[string]string{"beta": "b", "omega": "o"},
	}

	first := c.Compile(in)
	for i := 0; i < 20; i++ {
		if !reflect.DeepEqual(c.Compile(in), first) {
			t.Fatal("Compile() output varies across calls with identical input")
		}
	}

	content := sectionByTitle(t, first, "Selected Facets").Content
	want := "- alpha: a\n- mid: m\n- zeta: z\n- beta: b (default)\n- omega: o (default)"
	if content != want {
		t.Errorf("selected facets = %q, want sorted explicit then sorted defaults", content)
	}
}

func TestCompile_ServiceBranch(t *testing.T) {
	c := New()
	got := c.Compile(Input{
		RawQuery:       "q",
		ServiceResults: []matching.ScoredService{},
	})

	want := []string{"User Query", "Selected Facets", "Matching Services", "Special Instructions", "Instructions"}
	if !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("section titles = %v, want %v", titles(got), want)
	}
	// Empty but non-nil shortlist still renders the section.
	if content := sectionByTitle(t, got, "Matching Services").Content; !strings.Contains(content, "Aucun service") {
		t.Errorf("empty shortlist content = %q", content)
	}
	if content := sectionByTitle(t, got, "Special Instructions").Content; !strings.Contains(content, "do not invent services") {
		t.Errorf("special instructions = %q", content)
	}
}

func TestCompile_MemberBranchNoResults(t *testing.T) {
	c := New()
	got := c.Compile(Input{RawQuery: "q", MemberSearch: true})

	want := []string{"User Query", "Selected Facets", "Member Search Results", "Instructions"}
	if !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("section titles = %v, want %v (no special instructions without results)", titles(got), want)
	}
	if content := sectionByTitle(t, got, "Member Search Results").Content; !strings.Contains(content, "no directory match was found") {
		t.Errorf("no-results content = %q", content)
	}
}

func TestCompile_MemberBranchWithResults(t *testing.T) {
	c := New()
	got := c.Compile(Input{
		RawQuery:     "q",
		MemberSearch: true,
		MemberResults: []matching.ScoredMember{
			{Member: matching.Member{ID: "m1", CompanyName: "Pixel & Co"}, Score: 0.9},
		},
	})

	want := []string{"User Query", "Selected Facets", "Member Search Results", "Special Instructions", "Instructions"}
	if !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("section titles = %v, want %v", titles(got), want)
	}
	if content := sectionByTitle(t, got, "Member Search Results").Content; !strings.Contains(content, "Pixel & Co") {
		t.Errorf("member results content = %q", content)
	}
}

func TestCompile_MemoInstructions(t *testing.T) {
	c := New()
	for _, value := range []string{"Structured memo", "Mémo structuré"} {
		got := c.Compile(Input{
			RawQuery:   "q",
			Selections: domain.Selections{"deliverable_type": strPtr(value)},
		})
		content := sectionByTitle(t, got, "Instructions").Content
		if !strings.HasPrefix(content, defaultInstructions) {
			t.Errorf("memo instructions do not start with base block: %q", content)
		}
		if !strings.Contains(content, "Question Presented") {
			t.Errorf("memo block missing for %q: %q", value, content)
		}
	}
}

func TestCompile_UserInstructionsOverride(t *testing.T) {
	c := New()
	got := c.Compile(Input{
		RawQuery:         "q",
		Selections:       domain.Selections{"deliverable_type": strPtr("memo")},
		UserInstructions: "  Answer in one paragraph.  ",
	})
	content := sectionByTitle(t, got, "Instructions").Content
	if !strings.HasPrefix(content, "Answer in one paragraph.") {
		t.Errorf("override not applied: %q", content)
	}
	if strings.Contains(content, defaultInstructions) {
		t.Errorf("default block should be replaced: %q", content)
	}
	// Memo block still appends after an override.
	if !strings.Contains(content, "Question Presented") {
		t.Errorf("memo block dropped under override: %q", content)
	}
}

func TestCompile_NoDuplicateTitles(t *testing.T) {
	c := New()
	got := c.Compile(Input{
		RawQuery:       "q",
		Selections:     domain.Selections{"deliverable_type": strPtr("memo")},
		ServiceResults: []matching.ScoredService{},
	})
	seen := map[string]bool{}
	for _, title := range titles(got) {
		if seen[title] {
			t.Errorf("duplicate section title %q in %v", title, titles(got))
		}
		seen[title] = true
	}
}
