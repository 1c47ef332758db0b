// Package journal keeps an append-only audit trail of onboarding stage transitions.
package journal

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidEntry is returned when an entry lacks its session or stages.
var ErrInvalidEntry = errors.New("invalid journal entry")

// Entry is one recorded stage transition.
type Entry struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"sessionId"`
	Event             string    `json:"event"`
	FromStage         string    `json:"fromStage"`
	ToStage           string    `json:"toStage"`
	CustomerID        string    `json:"customerId,omitempty"`
	UserID            string    `json:"userId,omitempty"`
	ApplicationStatus string    `json:"applicationStatus,omitempty"`
	OccurredAt        time.Time `json:"occurredAt"`
}

func (e Entry) validate() error {
	if e.SessionID == "" || e.FromStage == "" || e.ToStage == "" || e.Event == "" {
		return ErrInvalidEntry
	}
	return nil
}

// Journal defines the contract implemented by journal backends (e.g. Postgres).
type Journal interface {
	Record(ctx context.Context, entry Entry) error
	History(ctx context.Context, sessionID string, limit int) ([]Entry, error)
}

// DefaultHistoryLimit caps History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 100
