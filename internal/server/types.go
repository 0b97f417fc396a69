package server

import "github.com/qda-labs/funnel/internal/domain"

// Wire shapes for the /api endpoints.

type ChoicePayload struct {
	Value      string   `json:"value"`
	Subchoices []string `json:"subchoices"`
}

type FacetCandidatePayload struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Question        string          `json:"question"`
	Reason          string          `json:"reason"`
	SuggestedValues []string        `json:"suggested_values"`
	Choices         []ChoicePayload `json:"choices"`
}

type FacetSelection struct {
	ID    string  `json:"id" validate:"required"`
	Value *string `json:"value"`
}

type ProceedDefaults struct {
	SelectedFacetIDs []string          `json:"selected_facet_ids"`
	AssumedDefaults  map[string]string `json:"assumed_defaults"`
}

type DiscoverRequest struct {
	RawQuery   string         `json:"raw_query" validate:"required"`
	DomainHint string         `json:"domain_hint"`
	UserPrefs  map[string]any `json:"user_prefs"`
}

type DiscoverResponse struct {
	RequestID        string                  `json:"request_id"`
	ActiveDomainPack string                  `json:"active_domain_pack"`
	FacetCandidates  []FacetCandidatePayload `json:"facet_candidates"`
	ProceedDefaults  ProceedDefaults         `json:"proceed_defaults"`
}

type RefineRequest struct {
	RequestID       string           `json:"request_id" validate:"required"`
	FacetSelections []FacetSelection `json:"facet_selections" validate:"dive"`
	RefineRound     int              `json:"refine_round"`
	ExcludeFacetIDs []string         `json:"exclude_facet_ids"`
}

type RefineResponse struct {
	FacetCandidates []FacetCandidatePayload `json:"facet_candidates"`
	WhyTheseFacets  []string                `json:"why_these_facets"`
}

type AnswerRequest struct {
	RequestID       string           `json:"request_id" validate:"required"`
	FacetSelections []FacetSelection `json:"facet_selections" validate:"dive"`
	UserOverrides   map[string]any   `json:"user_overrides"`
}

type PromptBundle struct {
	Sections []domain.PromptSection `json:"sections"`
}

type AnswerResponse struct {
	Answer         string              `json:"answer"`
	Trace          []domain.TraceEvent `json:"trace"`
	CompiledPrompt PromptBundle        `json:"compiled_prompt"`
	Reasoning      string              `json:"reasoning,omitempty"`
}

type TraceResponse struct {
	Request *domain.Request     `json:"request"`
	Events  []domain.TraceEvent `json:"events"`
}

type PacksResponse struct {
	Packs []string `json:"packs"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func serializeCandidates(candidates []domain.FacetCandidate) []FacetCandidatePayload {
	payloads := make([]FacetCandidatePayload, 0, len(candidates))
	for _, candidate := range candidates {
		facet := candidate.Facet
		choices := make([]ChoicePayload, 0, len(facet.Choices))
		for _, c := range facet.Choices {
			choices = append(choices, ChoicePayload{Value: c.Value, Subchoices: c.Subchoices})
		}
		payloads = append(payloads, FacetCandidatePayload{
			ID:              facet.ID,
			Title:           facet.Title,
			Question:        facet.Question,
			Reason:          candidate.Reason,
			SuggestedValues: facet.SuggestedValues,
			Choices:         choices,
		})
	}
	return payloads
}

func toSelections(selections []FacetSelection) domain.Selections {
	result := make(domain.Selections, len(selections))
	for _, s := range selections {
		result[s.ID] = s.Value
	}
	return result
}
