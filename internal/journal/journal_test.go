package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nexabank/onboarding/internal/bank"
	"github.com/nexabank/onboarding/internal/flow"
)

func TestMemoryJournalRecordAndHistory(t *testing.T) {
	j := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	entries := []Entry{
		{ID: "a", SessionID: "s1", Event: "choose_apply", FromStage: "LANDING", ToStage: "FORM", OccurredAt: now},
		{ID: "b", SessionID: "s2", Event: "choose_sign_in", FromStage: "LANDING", ToStage: "LOGIN", OccurredAt: now},
		{ID: "c", SessionID: "s1", Event: "reset", FromStage: "FORM", ToStage: "LANDING", OccurredAt: now},
		{ID: "a", SessionID: "s1", Event: "choose_apply", FromStage: "LANDING", ToStage: "FORM", OccurredAt: now},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("record %s: %v", e.ID, err)
		}
	}

	history, err := j.History(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ID != "a" || history[1].ID != "c" {
		t.Fatalf("unexpected history %+v", history)
	}

	limited, _ := j.History(ctx, "s1", 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}

	empty, _ := j.History(ctx, "missing", 10)
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty slice, got %v", empty)
	}
}

func TestRecordRejectsIncompleteEntries(t *testing.T) {
	err := NewMemory().Record(context.Background(), Entry{SessionID: "s1", Event: "reset"})
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestRecorderJournalsOrchestratorTransitions(t *testing.T) {
	j := NewMemory()
	backend := bank.NewMemoryBank(
		bank.WithBcryptCost(bcrypt.MinCost),
		bank.WithDecider(func() bank.ApplicationStatus { return bank.StatusDeclined }),
	)
	o := flow.New(backend, flow.WithObserver(Recorder(j, "session-1")))
	ctx := context.Background()

	if _, err := o.ChooseApply(ctx, ""); err != nil {
		t.Fatalf("choose apply: %v", err)
	}
	_, err := o.SubmitApplication(ctx, bank.ApplicationInput{
		FirstName: "Jane", LastName: "Smith", DateOfBirth: "1990-04-12",
		Email: "jane@example.com", Phone: "555-123-4567", StreetAddress: "1 Main St",
		City: "Springfield", State: "IL", ZipCode: "62701", Country: "United States",
		EmploymentStatus: "Employed", SSN: "123-45-6789",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	o.Reset(ctx)

	history, err := j.History(ctx, "session-1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %+v", history)
	}
	decided := history[1]
	if decided.ToStage != "DECLINED" || decided.ApplicationStatus != "DECLINED" || decided.CustomerID == "" {
		t.Fatalf("unexpected decision entry %+v", decided)
	}
	if history[2].ToStage != "LANDING" || history[2].CustomerID != "" {
		t.Fatalf("reset entry should carry no customer, got %+v", history[2])
	}
}
