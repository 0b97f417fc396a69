package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/qda-labs/funnel/internal/compiler"
	"github.com/qda-labs/funnel/internal/discovery"
	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/llm"
	"github.com/qda-labs/funnel/internal/matching"
	"github.com/qda-labs/funnel/internal/pack"
	"github.com/qda-labs/funnel/internal/ranker"
	"github.com/qda-labs/funnel/internal/storage"
	"github.com/qda-labs/funnel/internal/trace"
)

// Handler sequences the pipeline per API call: route the domain, discover
// and rank facets, track refinement rounds, match inventory, compile the
// prompt, call the model, and record every stage in the trace ledger.
type Handler struct {
	logger    *slog.Logger
	store     storage.Store
	ledger    *trace.Ledger
	packs     *pack.Store
	router    *pack.Router
	source    discovery.FacetSource
	ranker    ranker.Ranker
	compiler  *compiler.Compiler
	catalog   *matching.Catalog
	directory *matching.Directory
	model     llm.Client
	validate  *validator.Validate

	maxFacetQuestions int
	maxRefineRounds   int
}

// HandlerOptions carries the constructed collaborators. Model may be nil
// when no API key is configured; calls that need it then fail with a
// configuration error while the rest keep working.
type HandlerOptions struct {
	Logger            *slog.Logger
	Store             storage.Store
	Packs             *pack.Store
	Source            discovery.FacetSource
	Ranker            ranker.Ranker
	Catalog           *matching.Catalog
	Directory         *matching.Directory
	Model             llm.Client
	MaxFacetQuestions int
	MaxRefineRounds   int
}

// NewHandler creates the API handler.
func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{
		logger:            opts.Logger,
		store:             opts.Store,
		ledger:            trace.NewLedger(opts.Store),
		packs:             opts.Packs,
		router:            pack.NewRouter(opts.Packs),
		source:            opts.Source,
		ranker:            opts.Ranker,
		compiler:          compiler.New(),
		catalog:           opts.Catalog,
		directory:         opts.Directory,
		model:             opts.Model,
		validate:          validator.New(),
		maxFacetQuestions: opts.MaxFacetQuestions,
		maxRefineRounds:   opts.MaxRefineRounds,
	}
}

// Register mounts the API routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/discover", h.HandleDiscover)
		r.Post("/refine", h.HandleRefine)
		r.Post("/answer", h.HandleAnswer)
		r.Get("/trace/{request_id}", h.HandleTrace)
		r.Get("/packs", h.HandlePacks)
		r.Get("/members/{member_id}/contact", h.HandleMemberContact)
	})
}

func (h *Handler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	var payload DiscoverRequest
	if err := h.decode(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if h.source == nil {
		h.writeError(w, r, domain.ErrConfiguration("model facet proposals are enabled but no model API key is configured"))
		return
	}

	requestID := uuid.New().String()
	activePack := h.router.ChoosePack(payload.RawQuery, payload.DomainHint)
	p, err := h.packs.Load(activePack)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	candidates := h.source.DiscoverRound1(ctx, payload.RawQuery, p, h.maxFacetQuestions)
	ranked := h.ranker.Rank(ctx, payload.RawQuery, candidates)
	limited := truncate(ranked, h.maxFacetQuestions)

	req := &domain.Request{
		RequestID:  requestID,
		RawQuery:   payload.RawQuery,
		DomainPack: activePack,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.CreateRequest(ctx, req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.appendEvents(r, requestID,
		event(domain.EventDetectDomain, map[string]any{
			"active_domain_pack": activePack,
			"domain_hint":        payload.DomainHint,
		}),
		event(domain.EventSuggestFacets, map[string]any{
			"round":     1,
			"facet_ids": facetIDs(limited),
		}),
	); err != nil {
		h.writeError(w, r, err)
		return
	}

	assumedDefaults := make(map[string]string, len(limited))
	for _, candidate := range limited {
		value := candidate.Facet.DefaultValue
		if value == "" {
			value = "unspecified"
		}
		assumedDefaults[candidate.Facet.ID] = value
	}

	AddLogField(ctx, "funnel_request_id", requestID)
	h.writeJSON(w, http.StatusOK, DiscoverResponse{
		RequestID:        requestID,
		ActiveDomainPack: activePack,
		FacetCandidates:  serializeCandidates(limited),
		ProceedDefaults: ProceedDefaults{
			SelectedFacetIDs: []string{},
			AssumedDefaults:  assumedDefaults,
		},
	})
}

func (h *Handler) HandleRefine(w http.ResponseWriter, r *http.Request) {
	var payload RefineRequest
	if err := h.decode(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	// Rounds start at 2; absent, zero or negative values are floored so a
	// bogus round can neither bypass the cap nor be recorded in the trace.
	if payload.RefineRound < 2 {
		payload.RefineRound = 2
	}

	ctx := r.Context()
	req, err := h.store.GetRequest(ctx, payload.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Round-limit exhaustion is not an error: an explicit empty response,
	// with nothing appended to the trace.
	if payload.RefineRound > h.maxRefineRounds {
		h.writeJSON(w, http.StatusOK, RefineResponse{
			FacetCandidates: []FacetCandidatePayload{},
			WhyTheseFacets:  []string{"Max refine rounds reached"},
		})
		return
	}

	if h.source == nil {
		h.writeError(w, r, domain.ErrConfiguration("model facet proposals are enabled but no model API key is configured"))
		return
	}

	p, err := h.packs.Load(req.DomainPack)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	selections := toSelections(payload.FacetSelections)
	candidates := h.source.DiscoverRound2(ctx, req.RawQuery, p, selections, payload.ExcludeFacetIDs, h.maxFacetQuestions)
	ranked := h.ranker.Rank(ctx, req.RawQuery, candidates)
	limited := truncate(ranked, h.maxFacetQuestions)

	if err := h.appendEvents(r, payload.RequestID,
		event(domain.EventSuggestFacets, map[string]any{
			"round":     payload.RefineRound,
			"facet_ids": facetIDs(limited),
		}),
	); err != nil {
		h.writeError(w, r, err)
		return
	}

	whyThese := make([]string, 0, len(limited))
	for _, candidate := range limited {
		whyThese = append(whyThese, candidate.Reason)
	}
	if len(whyThese) == 0 {
		whyThese = []string{"No additional facets found"}
	}

	h.writeJSON(w, http.StatusOK, RefineResponse{
		FacetCandidates: serializeCandidates(limited),
		WhyTheseFacets:  whyThese,
	})
}

func (h *Handler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var payload AnswerRequest
	if err := h.decode(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	req, err := h.store.GetRequest(ctx, payload.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.model == nil {
		h.writeError(w, r, domain.ErrConfiguration("model API key is not configured"))
		return
	}

	p, err := h.packs.Load(req.DomainPack)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	selections := toSelections(payload.FacetSelections)
	defaults := make(map[string]string, len(p.Facets))
	for _, def := range p.Facets {
		value := def.DefaultValue
		if value == "" {
			value = "unspecified"
		}
		defaults[def.ID] = value
	}

	input := compiler.Input{
		RawQuery:         req.RawQuery,
		Selections:       selections,
		ProceedDefaults:  defaults,
		UserInstructions: overrideInstructions(payload.UserOverrides),
	}
	h.applyMatching(p, selections, &input)

	sections := h.compiler.Compile(input)

	if err := h.appendEvents(r, payload.RequestID,
		event(domain.EventUserSelect, map[string]any{"selections": selections}),
		event(domain.EventCompilePrompt, map[string]any{"sections": sections}),
	); err != nil {
		h.writeError(w, r, err)
		return
	}

	promptTokens := llm.EstimateTokens(sections)
	h.logger.Info("compiled prompt",
		slog.String("request_id", payload.RequestID),
		slog.Int("sections", len(sections)),
		slog.Int("prompt_tokens", promptTokens),
	)

	answer, reasoning, err := h.model.Generate(ctx, sections)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.appendEvents(r, payload.RequestID,
		event(domain.EventModelResponse, map[string]any{
			"model":          h.model.Model(),
			"answer_preview": preview(answer, 200),
			"has_reasoning":  reasoning != "",
			"prompt_tokens":  promptTokens,
		}),
	); err != nil {
		h.writeError(w, r, err)
		return
	}

	events, err := h.ledger.ListEvents(ctx, payload.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, AnswerResponse{
		Answer:         answer,
		Trace:          events,
		CompiledPrompt: PromptBundle{Sections: sections},
		Reasoning:      reasoning,
	})
}

// applyMatching activates at most one matching branch, depending on the
// pack's capability and the search_type selection.
func (h *Handler) applyMatching(p *pack.Pack, selections domain.Selections, input *compiler.Input) {
	searchType := strings.ToLower(selections.Value("search_type"))
	wantsMembers := strings.Contains(searchType, "member") ||
		strings.Contains(searchType, "prestataire") ||
		strings.Contains(searchType, "annuaire")

	switch {
	case p.HasCapability(pack.CapabilityMemberSearch) && wantsMembers && h.directory != nil:
		input.MemberSearch = true
		input.MemberResults = h.directory.Search(matching.MemberFilters{
			Sector:     selections.Value("sector"),
			Department: selections.Value("department"),
			Region:     selections.Value("region"),
			Keywords:   splitKeywords(selections.Value("keywords")),
			MinRating:  parseRating(selections.Value("min_rating")),
			MaxResults: 10,
		})
	case p.HasCapability(pack.CapabilityCatalog) && h.catalog != nil:
		input.ServiceResults = h.catalog.FilterServices(selections, 10)
	}
}

func (h *Handler) HandleTrace(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	req, err := h.store.GetRequest(r.Context(), requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	events, err := h.ledger.ListEvents(r.Context(), requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, TraceResponse{Request: req, Events: events})
}

func (h *Handler) HandlePacks(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, PacksResponse{Packs: h.packs.Names()})
}

func (h *Handler) HandleMemberContact(w http.ResponseWriter, r *http.Request) {
	if h.directory == nil {
		h.writeError(w, r, domain.ErrNotFound("member directory is not loaded"))
		return
	}
	memberID := chi.URLParam(r, "member_id")
	card := h.directory.MemberContactCard(memberID)
	if card == nil {
		h.writeError(w, r, domain.ErrNotFound("unknown member: "+memberID))
		return
	}
	h.writeJSON(w, http.StatusOK, card)
}

func (h *Handler) decode(r *http.Request, payload any) error {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		return domain.ErrInvalidRequest("malformed JSON body: " + err.Error())
	}
	if err := h.validate.Struct(payload); err != nil {
		return domain.ErrInvalidRequest(err.Error())
	}
	return nil
}

func event(eventType domain.EventType, data map[string]any) domain.TraceEvent {
	return domain.TraceEvent{EventType: eventType, Data: data}
}

// appendEvents appends events in stage-completion order; a failure after a
// partial append is surfaced so the caller can report it.
func (h *Handler) appendEvents(r *http.Request, requestID string, events ...domain.TraceEvent) error {
	for _, e := range events {
		if _, err := h.ledger.Append(r.Context(), requestID, e.EventType, e.Data); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		apiErr = domain.ErrServer(err.Error())
	}
	h.writeJSON(w, apiErr.HTTPStatusCode(), ErrorResponse{
		Error: ErrorBody{Type: string(apiErr.Type), Message: apiErr.Message},
	})
}

func truncate(candidates []domain.FacetCandidate, limit int) []domain.FacetCandidate {
	if limit > 0 && len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

func facetIDs(candidates []domain.FacetCandidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Facet.ID)
	}
	return ids
}

func overrideInstructions(overrides map[string]any) string {
	if overrides == nil {
		return ""
	}
	if value, ok := overrides["instructions"].(string); ok {
		return value
	}
	return ""
}

func splitKeywords(value string) []string {
	if value == "" {
		return nil
	}
	var keywords []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}

func parseRating(value string) float64 {
	if value == "" {
		return 0
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return rating
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
