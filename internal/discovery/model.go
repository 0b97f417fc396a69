package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/llm"
	"github.com/qda-labs/funnel/internal/pack"
)

// ModelSource is the model-backed FacetSource. It frames the task with a
// strict JSON output contract, then parses and repairs whatever comes back.
// Malformed output degrades to zero candidates, never an error.
type ModelSource struct {
	client llm.Client
	logger *slog.Logger
}

// NewModelSource creates the model-backed source.
func NewModelSource(client llm.Client, logger *slog.Logger) *ModelSource {
	return &ModelSource{client: client, logger: logger}
}

func (s *ModelSource) DiscoverRound1(ctx context.Context, rawQuery string, p *pack.Pack, limit int) []domain.FacetCandidate {
	domainContext, _ := json.Marshal(map[string]any{
		"domain":      p.Domain,
		"keywords":    p.Keywords,
		"base_facets": p.Facets,
	})

	sections := []domain.PromptSection{
		{Title: "Task", Content: "Generate facet options for a prompt builder. Focus on the topic itself."},
	}
	if guard := domainGuardrails(p); guard != "" {
		sections = append(sections, domain.PromptSection{Title: "Domain Guardrails", Content: guard})
	}
	sections = append(sections,
		domain.PromptSection{Title: "User Query", Content: strings.TrimSpace(rawQuery)},
		domain.PromptSection{Title: "Domain Context", Content: string(domainContext)},
		domain.PromptSection{Title: "Output JSON", Content: round1Contract(limit)},
	)

	payloads := s.generateFacets(ctx, sections, limit)
	query := strings.ToLower(rawQuery)
	candidates := make([]domain.FacetCandidate, 0, len(payloads))
	for _, item := range payloads {
		facet := item.materialize()
		reason := item.Reason
		if reason == "" {
			reason = reasonFromKeywords(query, facet, "")
		}
		candidates = append(candidates, domain.FacetCandidate{Facet: facet, Reason: reason})
	}
	return candidates
}

func (s *ModelSource) DiscoverRound2(ctx context.Context, rawQuery string, p *pack.Pack, selections domain.Selections, excludeIDs []string, limit int) []domain.FacetCandidate {
	selectedJSON, _ := json.Marshal(selections)
	domainContext, _ := json.Marshal(map[string]any{
		"domain":   p.Domain,
		"keywords": p.Keywords,
	})

	sections := []domain.PromptSection{
		{Title: "Task", Content: "Propose follow-up facets based on the user's selected facets and values."},
		{Title: "User Query", Content: strings.TrimSpace(rawQuery)},
		{Title: "Selected Facets", Content: string(selectedJSON)},
		{Title: "Domain Context", Content: string(domainContext)},
	}
	if len(excludeIDs) > 0 {
		// Advisory only: the engine does not post-filter against these ids,
		// so previously shown facets can still come back.
		sections = append(sections, domain.PromptSection{
			Title:   "Excluded Facet IDs",
			Content: "Do not repeat these facet ids, they were already shown:\n" + strings.Join(excludeIDs, ", "),
		})
	}
	sections = append(sections, domain.PromptSection{Title: "Output JSON", Content: round2Contract(limit)})

	payloads := s.generateFacets(ctx, sections, limit)
	candidates := make([]domain.FacetCandidate, 0, len(payloads))
	for _, item := range payloads {
		facet := item.materialize()
		reason := item.Reason
		if reason == "" {
			reason = "Derived from user selections"
		}
		candidates = append(candidates, domain.FacetCandidate{Facet: facet, Reason: reason})
	}
	return candidates
}

// generateFacets calls the model and parses its output, truncating to
// limit before conversion. Any failure yields an empty slice.
func (s *ModelSource) generateFacets(ctx context.Context, sections []domain.PromptSection, limit int) []facetPayload {
	raw, _, err := s.client.Generate(ctx, sections)
	if err != nil {
		s.logger.Warn("facet proposal call failed", slog.String("error", err.Error()))
		return nil
	}
	payloads := parseFacetJSON(raw)
	if limit > 0 && len(payloads) > limit {
		payloads = payloads[:limit]
	}
	return payloads
}

func domainGuardrails(p *pack.Pack) string {
	if p.Domain == "" || p.Domain == pack.UniversalPack {
		return ""
	}
	return fmt.Sprintf(
		"Stay strictly within the %q domain. Every facet must be relevant to that domain; do not propose facets about unrelated topics.",
		p.Domain,
	)
}

func round1Contract(maxFacets int) string {
	return `Return JSON only with this shape:
{
  "facets": [
    {
      "id": "topic_focus",
      "title": "Topic Focus",
      "question": "Which aspect of the topic should be emphasized?",
      "reason": "Short reason tied to query terms",
      "choices": [
        {"value": "value1", "subchoices": ["sub1", "sub2"]},
        {"value": "value2", "subchoices": []}
      ],
      "default_value": "value1"
    }
  ]
}
Rules:
- Provide 3 to ` + fmt.Sprint(maxFacets) + ` facets.
- At least 3 facets must be topic-specific (not audience/format/scope).
- Choices must be concrete and can include subchoices (up to 10).
- Keep ids short and snake_case.
- If the query mentions regions, locations, geographies, or areas, include a facet named "Geographical Focus" with options like "National (All)" and specific regions.
- Whenever you use the word "specific" in any facet title, question, or choice value, add a follow-up facet that lets the user choose the specific items or areas as multiple options (with up to 10 concrete choices).`
}

func round2Contract(maxFacets int) string {
	return `Return JSON only with this shape:
{
  "facets": [
    {
      "id": "subtopic",
      "title": "Subtopic Focus",
      "question": "Which subtopic should be expanded?",
      "reason": "Tie to selected facet/value",
      "choices": [
        {"value": "value1", "subchoices": ["sub1", "sub2"]},
        {"value": "value2", "subchoices": []}
      ],
      "default_value": "value1"
    }
  ]
}
Rules:
- Provide 1 to ` + fmt.Sprint(maxFacets) + ` facets.
- Must reflect the user's selections.
- Choices must be concrete and can include subchoices (up to 10).
- Keep ids short and snake_case.`
}

// facetPayload is the tolerant wire shape for a model-proposed facet.
type facetPayload struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Question        string            `json:"question"`
	Reason          string            `json:"reason"`
	Keywords        []string          `json:"keywords"`
	SuggestedValues []string          `json:"suggested_values"`
	Choices         []json.RawMessage `json:"choices"`
	DefaultValue    string            `json:"default_value"`
}

type choicePayload struct {
	Value      any   `json:"value"`
	Subchoices []any `json:"subchoices"`
}

// materialize converts the payload into a Facet, keeping only dict-shaped
// choices with a non-empty value and applying the sentinel rules.
func (p facetPayload) materialize() domain.Facet {
	id := p.ID
	if id == "" {
		id = slugify(p.Title)
	}
	title := p.Title
	if title == "" {
		title = id
	}
	question := p.Question
	if question == "" {
		question = "Choose an option"
	}

	var choices []domain.Choice
	for _, raw := range p.Choices {
		var c choicePayload
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		value := asString(c.Value)
		if value == "" {
			continue
		}
		subs := make([]string, 0, len(c.Subchoices))
		for _, sub := range c.Subchoices {
			if s := asString(sub); s != "" {
				subs = append(subs, s)
			}
		}
		choices = append(choices, domain.Choice{Value: value, Subchoices: subs})
	}

	facet := domain.Facet{
		ID:              id,
		Title:           title,
		Question:        question,
		Keywords:        p.Keywords,
		SuggestedValues: append([]string(nil), p.SuggestedValues...),
		Choices:         choices,
		DefaultValue:    p.DefaultValue,
	}
	applySentinel(&facet)
	return facet
}

func asString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", value), ".0")
	default:
		return ""
	}
}

// parseFacetJSON parses a model response into facet payloads. Direct JSON
// parsing is tried first; on failure the first-to-last brace substring is
// tried; anything else yields an empty list.
func parseFacetJSON(raw string) []facetPayload {
	var envelope struct {
		Facets []json.RawMessage `json:"facets"`
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

	payloads := make([]facetPayload, 0, len(envelope.Facets))
	for _, item := range envelope.Facets {
		var p facetPayload
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		payloads = append(payloads, p)
	}
	return payloads
}
