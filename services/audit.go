package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/geobarrowsa3/Clue-FHE/disclosure"
)

// AuditStore persists the externally observable protocol history: batch
// lifecycle events and settled disclosures. The store is write-mostly and
// advisory; protocol correctness never depends on it.
type AuditStore interface {
	RecordBatchEvent(batchID uint64, event, identity string) error
	RecordSettlement(result *disclosure.Result) error
	Close() error
}

// PostgresAuditStore implements AuditStore with PostgreSQL persistence.
type PostgresAuditStore struct {
	db *sql.DB
}

// NewPostgresAuditStore connects to PostgreSQL and runs migrations.
func NewPostgresAuditStore(config *PostgresConfig) (*PostgresAuditStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresAuditStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return store, nil
}

func (s *PostgresAuditStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batch_events (
		id BIGSERIAL PRIMARY KEY,
		batch_id BIGINT NOT NULL,
		event VARCHAR(32) NOT NULL,
		identity VARCHAR(128) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS settlements (
		request_id BIGINT PRIMARY KEY,
		batch_id BIGINT NOT NULL,
		kind VARCHAR(16) NOT NULL,
		result JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_batch_events_batch ON batch_events(batch_id);
	CREATE INDEX IF NOT EXISTS idx_settlements_batch ON settlements(batch_id);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// RecordBatchEvent appends one batch lifecycle event.
func (s *PostgresAuditStore) RecordBatchEvent(batchID uint64, event, identity string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_events (batch_id, event, identity) VALUES ($1, $2, $3)`,
		int64(batchID), event, identity,
	)
	return err
}

// RecordSettlement persists one settled disclosure. Settlements are
// exactly-once upstream, so conflicts are ignored.
func (s *PostgresAuditStore) RecordSettlement(result *disclosure.Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settlements (request_id, batch_id, kind, result)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id) DO NOTHING`,
		int64(result.RequestID), int64(result.BatchID), result.Kind.String(), payload,
	)
	return err
}

// Close closes the database connection.
func (s *PostgresAuditStore) Close() error {
	return s.db.Close()
}

// InMemoryAuditStore implements AuditStore for tests and single-node demos.
type InMemoryAuditStore struct {
	mu          sync.Mutex
	batchEvents []BatchEvent
	settlements map[uint64]*disclosure.Result
}

// BatchEvent is one recorded lifecycle event.
type BatchEvent struct {
	BatchID  uint64
	Event    string
	Identity string
}

// NewInMemoryAuditStore creates an empty in-memory store.
func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{settlements: make(map[uint64]*disclosure.Result)}
}

// RecordBatchEvent appends one batch lifecycle event.
func (s *InMemoryAuditStore) RecordBatchEvent(batchID uint64, event, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchEvents = append(s.batchEvents, BatchEvent{BatchID: batchID, Event: event, Identity: identity})
	return nil
}

// RecordSettlement stores one settled disclosure.
func (s *InMemoryAuditStore) RecordSettlement(result *disclosure.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements[uint64(result.RequestID)] = result
	return nil
}

// BatchEvents returns a copy of the recorded events.
func (s *InMemoryAuditStore) BatchEvents() []BatchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BatchEvent, len(s.batchEvents))
	copy(out, s.batchEvents)
	return out
}

// Settlement returns the recorded settlement for a request id.
func (s *InMemoryAuditStore) Settlement(requestID uint64) (*disclosure.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.settlements[requestID]
	return r, ok
}

// Close is a no-op.
func (s *InMemoryAuditStore) Close() error {
	return nil
}
