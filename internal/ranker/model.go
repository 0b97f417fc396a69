package ranker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/llm"
)

// Model re-orders candidates by asking the model for a facet_order list.
// The returned order is applied for the ids it mentions; remaining
// candidates keep their original order. An unparseable or empty order falls
// back to the deterministic ranking.
type Model struct {
	client   llm.Client
	fallback *Heuristic
	logger   *slog.Logger
}

// NewModel creates the model-assisted ranker.
func NewModel(client llm.Client, logger *slog.Logger) *Model {
	return &Model{
		client:   client,
		fallback: NewHeuristic(),
		logger:   logger,
	}
}

func (m *Model) Rank(ctx context.Context, rawQuery string, candidates []domain.FacetCandidate) []domain.FacetCandidate {
	if len(candidates) == 0 {
		return nil
	}

	type triple struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Question string `json:"question"`
	}
	triples := make([]triple, 0, len(candidates))
	for _, c := range candidates {
		triples = append(triples, triple{ID: c.Facet.ID, Title: c.Facet.Title, Question: c.Facet.Question})
	}
	triplesJSON, _ := json.Marshal(triples)

	sections := []domain.PromptSection{
		{Title: "Task", Content: "Order these facet candidates from most to least relevant for the user's query."},
		{Title: "User Query", Content: strings.TrimSpace(rawQuery)},
		{Title: "Facet Candidates", Content: string(triplesJSON)},
		{Title: "Output JSON", Content: `Return JSON only with this shape:
{"facet_order": ["id1", "id2"]}
Include every candidate id exactly once.`},
	}

	raw, _, err := m.client.Generate(ctx, sections)
	if err != nil {
		m.logger.Warn("rank call failed", slog.String("error", err.Error()))
		return m.fallback.Rank(ctx, rawQuery, candidates)
	}

	order := parseOrder(raw)
	if len(order) == 0 {
		return m.fallback.Rank(ctx, rawQuery, candidates)
	}

	byID := make(map[string]int, len(candidates))
	for i, c := range candidates {
		if _, ok := byID[c.Facet.ID]; !ok {
			byID[c.Facet.ID] = i
		}
	}

	ranked := make([]domain.FacetCandidate, 0, len(candidates))
	used := make(map[int]bool, len(candidates))
	for _, id := range order {
		idx, ok := byID[id]
		if !ok || used[idx] {
			continue
		}
		ranked = append(ranked, candidates[idx])
		used[idx] = true
	}
	for i, c := range candidates {
		if !used[i] {
			ranked = append(ranked, c)
		}
	}
	return ranked
}

func parseOrder(raw string) []string {
	var envelope struct {
		FacetOrder []string `json:"facet_order"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return nil
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &envelope); err != nil {
			return nil
		}
	}
	return envelope.FacetOrder
}
