// Package sqlite is the durable SQLite implementation of the storage port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/qda-labs/funnel/internal/domain"
	"github.com/qda-labs/funnel/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS requests (
			request_id TEXT PRIMARY KEY,
			raw_query TEXT NOT NULL,
			domain_pack TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			data_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_request ON events(request_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateRequest(ctx context.Context, req *domain.Request) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (request_id, raw_query, domain_pack, created_at) VALUES (?, ?, ?, ?)`,
		req.RequestID, req.RawQuery, req.DomainPack, req.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create request %s: %w", req.RequestID, err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT request_id, raw_query, domain_pack, created_at FROM requests WHERE request_id = ?`,
		requestID,
	)

	var req domain.Request
	var createdAt string
	if err := row.Scan(&req.RequestID, &req.RawQuery, &req.DomainPack, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound(fmt.Sprintf("unknown request_id: %s", requestID))
		}
		return nil, fmt.Errorf("get request %s: %w", requestID, err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		req.CreatedAt = ts
	}
	return &req, nil
}

func (s *Store) AppendEvent(ctx context.Context, requestID string, event *domain.TraceEvent) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (request_id, event_type, data_json, created_at) VALUES (?, ?, ?, ?)`,
		requestID, string(event.EventType), string(payload), event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append event for %s: %w", requestID, err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, requestID string) ([]domain.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, data_json, created_at FROM events WHERE request_id = ? ORDER BY id ASC`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", requestID, err)
	}
	defer rows.Close()

	var events []domain.TraceEvent
	for rows.Next() {
		var eventType, dataJSON, createdAt string
		if err := rows.Scan(&eventType, &dataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event := domain.TraceEvent{EventType: domain.EventType(eventType)}
		if err := json.Unmarshal([]byte(dataJSON), &event.Data); err != nil {
			return nil, fmt.Errorf("unmarshal event data: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			event.Timestamp = ts
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
