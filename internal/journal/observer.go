package journal

import (
	"context"

	"github.com/google/uuid"

	"github.com/nexabank/onboarding/internal/flow"
)

// Recorder returns a flow observer that journals every transition of one session.
func Recorder(j Journal, sessionID string) flow.Observer {
	return flow.ObserverFunc(func(ctx context.Context, change flow.Change) error {
		entry := Entry{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			Event:      change.Event,
			FromStage:  string(change.From),
			ToStage:    string(change.To),
			OccurredAt: change.At,
		}
		if app := change.State.Application(); app != nil {
			entry.CustomerID = app.ID
			entry.ApplicationStatus = string(app.ApplicationStatus)
		}
		if session := change.State.Session(); session != nil {
			entry.UserID = session.UserID
			if entry.CustomerID == "" {
				entry.CustomerID = session.CustomerID
			}
		}
		return j.Record(ctx, entry)
	})
}
