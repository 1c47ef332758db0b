package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the stage_transitions table used by PostgresJournal.
const Schema = `
CREATE TABLE IF NOT EXISTS stage_transitions (
    seq                BIGSERIAL PRIMARY KEY,
    id                 UUID NOT NULL UNIQUE,
    session_id         TEXT NOT NULL,
    event              TEXT NOT NULL,
    from_stage         TEXT NOT NULL,
    to_stage           TEXT NOT NULL,
    customer_id        TEXT,
    user_id            TEXT,
    application_status TEXT,
    occurred_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS stage_transitions_session_idx ON stage_transitions (session_id, seq);`

// PostgresJournal persists transitions in PostgreSQL.
type PostgresJournal struct {
	db *pgxpool.Pool
}

// NewPostgresJournal constructs a Postgres-backed journal.
func NewPostgresJournal(db *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// Record appends an entry. Replaying an entry with the same id is a no-op.
func (j *PostgresJournal) Record(ctx context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	id := uuid.New()
	if entry.ID != "" {
		parsed, err := uuid.Parse(entry.ID)
		if err != nil {
			return fmt.Errorf("%w: id: %v", ErrInvalidEntry, err)
		}
		id = parsed
	}

	_, err := j.db.Exec(ctx, `INSERT INTO stage_transitions
        (id, session_id, event, from_stage, to_stage, customer_id, user_id, application_status, occurred_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
        ON CONFLICT (id) DO NOTHING`,
		id, entry.SessionID, entry.Event, entry.FromStage, entry.ToStage,
		entry.CustomerID, entry.UserID, entry.ApplicationStatus, entry.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// History returns a session's transitions, oldest first.
func (j *PostgresJournal) History(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	const query = `
        SELECT id, session_id, event, from_stage, to_stage,
               COALESCE(customer_id, ''), COALESCE(user_id, ''), COALESCE(application_status, ''), occurred_at
        FROM stage_transitions
        WHERE session_id = $1
        ORDER BY seq
        LIMIT $2`

	rows, err := j.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e  Entry
			id uuid.UUID
		)
		err := row.Scan(&id, &e.SessionID, &e.Event, &e.FromStage, &e.ToStage,
			&e.CustomerID, &e.UserID, &e.ApplicationStatus, &e.OccurredAt)
		e.ID = id.String()
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan transitions: %w", err)
	}
	return entries, nil
}
