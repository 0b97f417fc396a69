package ranker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/qda-labs/funnel/internal/domain"
)

func candidate(id string, keywords []string, defaultValue string) domain.FacetCandidate {
	return domain.FacetCandidate{
		Facet: domain.Facet{
			ID:           id,
			Title:        id,
			Question:     "?",
			Keywords:     keywords,
			DefaultValue: defaultValue,
		},
	}
}

func ids(candidates []domain.FacetCandidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Facet.ID)
	}
	return out
}

func assertOrder(t *testing.T, got []domain.FacetCandidate, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("ranked ids = %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("ranked ids = %v, want %v", gotIDs, want)
		}
	}
}

func TestHeuristic_Rank(t *testing.T) {
	h := NewHeuristic()
	input := []domain.FacetCandidate{
		candidate("a", nil, ""),
		candidate("b", []string{"bread"}, ""),
		candidate("c", []string{"bread", "oven"}, ""),
		candidate("d", nil, "some default"),
	}

	got := h.Rank(context.Background(), "Bread and oven advice", input)
	assertOrder(t, got, "c", "b", "d", "a")
}

func TestHeuristic_RankIsStable(t *testing.T) {
	h := NewHeuristic()
	input := []domain.FacetCandidate{
		candidate("first", nil, ""),
		candidate("second", nil, ""),
		candidate("third", nil, ""),
	}

	got := h.Rank(context.Background(), "nothing matches", input)
	assertOrder(t, got, "first", "second", "third")
}

func TestHeuristic_RankDoesNotMutateInput(t *testing.T) {
	h := NewHeuristic()
	input := []domain.FacetCandidate{
		candidate("a", nil, ""),
		candidate("b", []string{"match"}, ""),
	}
	h.Rank(context.Background(), "match", input)
	if input[0].Facet.ID != "a" || input[1].Facet.ID != "b" {
		t.Errorf("input mutated: %v", ids(input))
	}
}

type stubClient struct {
	response string
	err      error
}

func (c *stubClient) Generate(context.Context, []domain.PromptSection) (string, string, error) {
	return c.response, "", c.err
}

func (c *stubClient) Model() string { return "stub" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestModel_RankAppliesOrder(t *testing.T) {
	m := NewModel(&stubClient{response: `{"facet_order": ["c", "a", "b"]}`}, discardLogger())
	input := []domain.FacetCandidate{
		candidate("a", nil, ""),
		candidate("b", nil, ""),
		candidate("c", nil, ""),
	}
	got := m.Rank(context.Background(), "q", input)
	assertOrder(t, got, "c", "a", "b")
}

func TestModel_RankPartialOrder(t *testing.T) {
	// Unknown and duplicate ids are skipped; unmentioned candidates keep
	// their original relative order at the tail.
	m := NewModel(&stubClient{response: `{"facet_order": ["c", "nope", "c"]}`}, discardLogger())
	input := []domain.FacetCandidate{
		candidate("a", nil, ""),
		candidate("b", nil, ""),
		candidate("c", nil, ""),
	}
	got := m.Rank(context.Background(), "q", input)
	assertOrder(t, got, "c", "a", "b")
}

func TestModel_RankFallsBackOnError(t *testing.T) {
	m := NewModel(&stubClient{err: errors.New("timeout")}, discardLogger())
	input := []domain.FacetCandidate{
		candidate("a", nil, ""),
		candidate("b", []string{"bread"}, ""),
	}
	got := m.Rank(context.Background(), "bread", input)
	assertOrder(t, got, "b", "a")
}

func TestModel_RankFallsBackOnGarbage(t *testing.T) {
	m := NewModel(&stubClient{response: "no json here"}, discardLogger())
	input := []domain.FacetCandidate{
		candidate("a", nil, ""),
		candidate("b", nil, "has default"),
	}
	got := m.Rank(context.Background(), "q", input)
	assertOrder(t, got, "b", "a")
}

func TestModel_RankEmptyInput(t *testing.T) {
	m := NewModel(&stubClient{response: `{"facet_order": []}`}, discardLogger())
	if got := m.Rank(context.Background(), "q", nil); got != nil {
		t.Errorf("Rank(nil) = %v, want nil", got)
	}
}
