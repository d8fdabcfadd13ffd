// Package catalog maintains the mailbox catalog (SPEC_FULL.md §4.14): a
// PostgreSQL table of per-mailbox document counts, the last indexed id
// observed, and the last-updated time, kept eventually consistent by
// consuming index.complete events off Kafka. The catalog is descriptive
// only — the intersector never reads it, and the core write/search path
// is correct whether or not the catalog is running at all.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"mboxsearch/internal/events"
	pkgkafka "mboxsearch/pkg/kafka"
	pkgpostgres "mboxsearch/pkg/postgres"
	"mboxsearch/pkg/resilience"
)

// Catalog persists mailbox summary rows in PostgreSQL.
//
// It requires a mailbox_catalog table:
//
//	CREATE TABLE mailbox_catalog (
//	    mailbox        TEXT PRIMARY KEY,
//	    document_count BIGINT NOT NULL DEFAULT 0,
//	    last_indexed_id TEXT NOT NULL DEFAULT '',
//	    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Catalog struct {
	db      *pkgpostgres.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// New returns a Catalog backed by db. A circuit breaker guards the write
// path so a degraded Postgres doesn't pile up retries against the Kafka
// consumer loop that drives RecordIndexComplete.
func New(db *pkgpostgres.Client) *Catalog {
	return &Catalog{
		db:      db,
		breaker: resilience.NewCircuitBreaker("mailbox-catalog-db", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "mailbox-catalog"),
	}
}

// RecordIndexComplete upserts the mailbox's row, incrementing its
// document count and advancing last_indexed_id if ev's id sorts after
// the one currently on file. Kafka delivers index.complete at-least-once
// and out of order across partitions, so this must be safe to apply more
// than once and in any order; the CASE expression below makes the
// last_indexed_id advance monotonic regardless of delivery order.
func (c *Catalog) RecordIndexComplete(ctx context.Context, ev events.IndexComplete) error {
	err := c.breaker.Execute(func() error {
		_, err := c.db.DB.ExecContext(ctx, `
			INSERT INTO mailbox_catalog (mailbox, document_count, last_indexed_id, updated_at)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (mailbox) DO UPDATE SET
				document_count = mailbox_catalog.document_count + 1,
				last_indexed_id = CASE
					WHEN $2 > mailbox_catalog.last_indexed_id THEN $2
					ELSE mailbox_catalog.last_indexed_id
				END,
				updated_at = $3
		`, ev.Mailbox, ev.IndexedID, ev.Timestamp.UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("recording index.complete for mailbox %s: %w", ev.Mailbox, err)
	}
	return nil
}

// Summary is one mailbox's catalog row.
type Summary struct {
	Mailbox       string
	DocumentCount int64
	LastIndexedID string
	UpdatedAt     time.Time
}

// Get returns the catalog row for mailbox, or ok=false if none exists
// yet (no documents have been indexed into it).
func (c *Catalog) Get(ctx context.Context, mailbox string) (Summary, bool, error) {
	var s Summary
	s.Mailbox = mailbox
	err := c.db.DB.QueryRowContext(ctx,
		`SELECT document_count, last_indexed_id, updated_at FROM mailbox_catalog WHERE mailbox = $1`,
		mailbox,
	).Scan(&s.DocumentCount, &s.LastIndexedID, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, fmt.Errorf("querying catalog for mailbox %s: %w", mailbox, err)
	}
	return s, true, nil
}

// Consumer wires a Kafka consumer of the index.complete topic into a
// Catalog. Malformed payloads are logged and skipped rather than
// crashing the consume loop, since the catalog's correctness is
// best-effort by design.
type Consumer struct {
	catalog *Catalog
	logger  *slog.Logger
}

// NewConsumer returns a Consumer applying decoded events to catalog.
func NewConsumer(catalog *Catalog) *Consumer {
	return &Consumer{catalog: catalog, logger: slog.Default().With("component", "catalog-consumer")}
}

// Handle implements pkgkafka.MessageHandler.
func (cn *Consumer) Handle(ctx context.Context, _ []byte, value []byte) error {
	ev, err := pkgkafka.DecodeJSON[events.IndexComplete](value)
	if err != nil {
		cn.logger.Warn("skipping malformed index.complete event", "error", err)
		return nil
	}
	return cn.catalog.RecordIndexComplete(ctx, ev)
}
