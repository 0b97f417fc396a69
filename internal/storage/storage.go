// Package storage defines the persistence port for request records and
// their append-only trace events.
package storage

import (
	"context"

	"github.com/qda-labs/funnel/internal/domain"
)

// Store persists create-once request rows and append-only, order-preserving
// event rows keyed by request id. Implementations must serialize writes per
// request at minimum; writers for distinct requests may run concurrently.
type Store interface {
	// CreateRequest stores a request record exactly once.
	CreateRequest(ctx context.Context, req *domain.Request) error

	// GetRequest looks up a request record; unknown ids fail with a
	// not-found condition.
	GetRequest(ctx context.Context, requestID string) (*domain.Request, error)

	// AppendEvent durably appends one trace event. Events are never
	// overwritten or deleted.
	AppendEvent(ctx context.Context, requestID string, event *domain.TraceEvent) error

	// ListEvents returns the request's events in insertion order.
	ListEvents(ctx context.Context, requestID string) ([]domain.TraceEvent, error)

	Close() error
}
