/*
Package sqlite provides a SQLite-backed implementation of the audit store.

PURPOSE:
  Implements audit.Store using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The store enforces append-only semantics:
  - No UPDATE statements on the messages table
  - No DELETE statements on the messages table
  - Audit messages are retained indefinitely

ATOMIC BATCHES:
  Append wraps each batch in a database transaction. Either every message
  of an ingest call is written or none is - this backs the audit
  service's all-or-nothing ingestion guarantee.

KEY TABLE:
  audit_messages: Immutable log of diagnostic messages, one row per
  message, meta serialized as JSON.

INDEXES:
  - idx_audit_messages_created: most-recent-first listing (hot path)
  - idx_audit_messages_step:    step filtering
  - idx_audit_messages_batch:   grouped reads per batch

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, a single writer at a time, better crash
  recovery.

USAGE:
  store, err := sqlite.New("./data/audit.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  svc := audit.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - audit/store.go: Interface definition
  - audit/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/audit"
)

// createdAtLayout is a fixed-width RFC3339 form (nanoseconds always
// padded to nine digits). RFC3339Nano trims trailing zeros, which makes
// lexical order diverge from chronological order when whole-second and
// sub-second timestamps mix; ORDER BY created_at relies on the two
// orders agreeing.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements audit.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Audit messages (append-only; no UPDATE or DELETE ever runs here)
	CREATE TABLE IF NOT EXISTS audit_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		level TEXT NOT NULL,
		tag TEXT,
		text TEXT NOT NULL,
		scope TEXT NOT NULL,
		source TEXT,
		meta_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_messages_created
		ON audit_messages(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_messages_step
		ON audit_messages(step);
	CREATE INDEX IF NOT EXISTS idx_audit_messages_batch
		ON audit_messages(batch_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// AUDIT STORE INTERFACE
// =============================================================================

// Append persists the batch atomically inside one database transaction.
func (s *Store) Append(ctx context.Context, messages []audit.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_messages
			(batch_id, step, level, tag, text, scope, source, meta_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range messages {
		var metaJSON []byte
		if len(msg.Meta) > 0 {
			metaJSON, err = json.Marshal(msg.Meta)
			if err != nil {
				return fmt.Errorf("marshal meta: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx,
			msg.BatchID, msg.Step, string(msg.Level), msg.Tag, msg.Text,
			string(msg.Scope), msg.Source, string(metaJSON),
			msg.CreatedAt.UTC().Format(createdAtLayout),
		); err != nil {
			return fmt.Errorf("insert audit message: %w", err)
		}
	}

	return tx.Commit()
}

// Query returns matching messages, most recent first. Ties on created_at
// resolve to the later-inserted row first.
func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]audit.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT batch_id, step, level, tag, text, scope, source, meta_json, created_at
		FROM audit_messages`
	var args []any
	if filter.Step != nil {
		query += ` WHERE step = ?`
		args = append(args, *filter.Step)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit messages: %w", err)
	}
	defer rows.Close()

	var messages []audit.Message
	for rows.Next() {
		var (
			msg       audit.Message
			level     string
			scope     string
			metaJSON  sql.NullString
			tag       sql.NullString
			source    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&msg.BatchID, &msg.Step, &level, &tag, &msg.Text,
			&scope, &source, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit message: %w", err)
		}
		msg.Level = audit.Level(level)
		msg.Scope = audit.Scope(scope)
		msg.Tag = tag.String
		msg.Source = source.String
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &msg.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal meta: %w", err)
			}
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		msg.CreatedAt = ts
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
