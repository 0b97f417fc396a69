// Package trace is the append-only audit ledger: one timestamped event per
// pipeline stage transition, ordered per request.
package trace

import (
	"context"
	"time"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/storage"
)

// Ledger appends and reads back trace events for a request.
type Ledger struct {
	store storage.Store
}

// NewLedger creates a ledger over the given store.
func NewLedger(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// Append durably stores an event with a freshly generated UTC timestamp
// and returns it. Events must be appended in the exact order their stage
// completed; the ledger itself adds no reordering.
func (l *Ledger) Append(ctx context.Context, requestID string, eventType domain.EventType, data map[string]any) (*domain.TraceEvent, error) {
	event := &domain.TraceEvent{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if err := l.store.AppendEvent(ctx, requestID, event); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns the request's events in insertion order.
func (l *Ledger) ListEvents(ctx context.Context, requestID string) ([]domain.TraceEvent, error) {
	return l.store.ListEvents(ctx, requestID)
}
