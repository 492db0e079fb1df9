// Package audit implements the optional Postgres-backed audit sink: it
// records every lifecycle transition, and each START/STOP outcome the
// control server reports, to a table, satisfying
// internal/lifecycle.TransitionAuditor. Grounded on
// api/internal/db/database.go's sql.Open("postgres", ...) + connection-pool
// configuration + Ping-on-construct pattern.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
)

// Sink is a Postgres-backed audit trail. A nil *sql.DB (no DSN configured)
// makes every record call a no-op.
type Sink struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// Open connects to the audit database and verifies connectivity. Pass an
// empty dsn to disable auditing entirely — the returned Sink becomes inert.
func Open(dsn string, logger *zerolog.Logger) (*Sink, error) {
	if dsn == "" {
		return &Sink{logger: logger}, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping audit database: %w", err)
	}

	return &Sink{db: db, logger: logger}, nil
}

// RecordTransition implements lifecycle.TransitionAuditor.
func (s *Sink) RecordTransition(from, to lifecycle.State) {
	s.insert("lifecycle_transition", fmt.Sprintf("%s->%s", from, to))
}

// RecordCommand records a control-socket command and its outcome.
func (s *Sink) RecordCommand(command, outcome string) {
	s.insert(command, outcome)
}

func (s *Sink) insert(kind, detail string) {
	if s.db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	const stmt = `INSERT INTO runtime_audit_log (kind, detail, occurred_at) VALUES ($1, $2, now())`
	if _, err := s.db.ExecContext(ctx, stmt, kind, detail); err != nil {
		s.logger.Warn().Err(err).Str("kind", kind).Msg("audit insert failed")
	}
}

// Close releases the underlying connection pool, if any.
func (s *Sink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
