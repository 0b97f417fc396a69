package domain

import "time"

// EventType enumerates the pipeline stages recorded in the trace ledger.
type EventType string

const (
	EventDetectDomain  EventType = "DETECT_DOMAIN"
	EventSuggestFacets EventType = "SUGGEST_FACETS"
	EventUserSelect    EventType = "USER_SELECT"
	EventCompilePrompt EventType = "COMPILE_PROMPT"
	EventModelResponse EventType = "MODEL_RESPONSE"
)

// Request is the immutable per-dialogue record created exactly once at
// round-1 discovery. Its domain pack never changes after creation.
type Request struct {
	RequestID  string    `json:"request_id"`
	RawQuery   string    `json:"raw_query"`
	DomainPack string    `json:"domain_pack"`
	CreatedAt  time.Time `json:"created_at"`
}

// TraceEvent is one append-only audit entry. Events are never mutated or
// deleted; for a given request the sequence is insertion-ordered with
// non-decreasing timestamps.
type TraceEvent struct {
	EventType EventType      `json:"event_type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}
