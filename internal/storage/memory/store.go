// Package memory is an in-memory implementation of the storage port, used
// in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu       sync.RWMutex
	requests map[string]*domain.Request
	events   map[string][]domain.TraceEvent
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		requests: make(map[string]*domain.Request),
		events:   make(map[string][]domain.TraceEvent),
	}
}

func (s *Store) CreateRequest(_ context.Context, req *domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.RequestID]; exists {
		return fmt.Errorf("request %s already exists", req.RequestID)
	}
	copied := *req
	s.requests[req.RequestID] = &copied
	return nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (*domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, exists := s.requests[requestID]
	if !exists {
		return nil, domain.ErrNotFound(fmt.Sprintf("unknown request_id: %s", requestID))
	}
	copied := *req
	return &copied, nil
}

func (s *Store) AppendEvent(_ context.Context, requestID string, event *domain.TraceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[requestID] = append(s.events[requestID], *event)
	return nil
}

func (s *Store) ListEvents(_ context.Context, requestID string) ([]domain.TraceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.TraceEvent(nil), s.events[requestID]...), nil
}

func (s *Store) Close() error {
	return nil
}
