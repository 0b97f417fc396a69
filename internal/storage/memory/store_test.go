package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qda-labs/funnel/internal/domain"
)

func TestCreateAndGetRequest(t *testing.T) {
	store := New()
	ctx := context.Background()

	req := &domain.Request{RequestID: "req-1", RawQuery: "q", DomainPack: "universal", CreatedAt: time.Now()}
	if err := store.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if err := store.CreateRequest(ctx, req); err == nil {
		t.Fatal("CreateRequest() expected error on duplicate id")
	}

	got, err := store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	got.RawQuery = "mutated"
	again, _ := store.GetRequest(ctx, "req-1")
	if again.RawQuery != "q" {
		t.Error("GetRequest() returned a shared pointer, want a copy")
	}

	_, err = store.GetRequest(ctx, "nope")
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeNotFound {
		t.Errorf("GetRequest(unknown) error = %v, want not_found", err)
	}
}

func TestEventsKeepInsertionOrder(t *testing.T) {
	store := New()
	ctx := context.Background()

	types := []domain.EventType{domain.EventDetectDomain, domain.EventSuggestFacets, domain.EventUserSelect}
	for _, et := range types {
		if err := store.AppendEvent(ctx, "req-1", &domain.TraceEvent{EventType: et, Timestamp: time.Now()}); err != nil {
			t.Fatalf("AppendEvent(%s) error = %v", et, err)
		}
	}

	events, err := store.ListEvents(ctx, "req-1")
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != len(types) {
		t.Fatalf("ListEvents() returned %d events, want %d", len(events), len(types))
	}
	for i := range types {
		if events[i].EventType != types[i] {
			t.Errorf("events[%d] = %s, want %s", i, events[i].EventType, types[i])
		}
	}

	other, err := store.ListEvents(ctx, "other")
	if err != nil || len(other) != 0 {
		t.Errorf("ListEvents(other) = %v, %v, want empty", other, err)
	}
}
