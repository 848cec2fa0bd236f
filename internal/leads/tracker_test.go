package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicedial-platform/internal/audit"
	"voicedial-platform/internal/domain"
)

func newTestTracker() (*Tracker, *MemoryRepo, *audit.MemoryRepo) {
	repo := NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	tr := NewTracker(repo, audit.NewService(auditRepo))
	tr.clock = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return tr, repo, auditRepo
}

func seedLead(t *testing.T, repo *MemoryRepo, id string, status Status) Lead {
	t.Helper()
	l := Lead{
		ID:          id,
		CampaignID:  "camp-1",
		PhoneNumber: "+15550100",
		Status:      status,
	}
	if err := repo.CreateBatch(context.Background(), []Lead{l}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return l
}

func TestOnCallStartedMovesPendingToCalling(t *testing.T) {
	tr, repo, _ := newTestTracker()
	seedLead(t, repo, "l1", StatusPending)

	if err := tr.OnCallStarted(context.Background(), "l1"); err != nil {
		t.Fatalf("started: %v", err)
	}
	got, _ := repo.Get(context.Background(), "l1")
	if got.Status != StatusCalling {
		t.Fatalf("expected calling, got %s", got.Status)
	}
}

func TestOnCallStartedRedialIsNoop(t *testing.T) {
	tr, repo, _ := newTestTracker()
	seedLead(t, repo, "l1", StatusCalling)

	if err := tr.OnCallStarted(context.Background(), "l1"); err != nil {
		t.Fatalf("redial: %v", err)
	}
	got, _ := repo.Get(context.Background(), "l1")
	if got.Status != StatusCalling {
		t.Fatalf("expected calling, got %s", got.Status)
	}
}

func TestOnCallStartedTerminalLeadIsAnomalyNotError(t *testing.T) {
	tr, repo, auditRepo := newTestTracker()
	seedLead(t, repo, "l1", StatusCompleted)

	if err := tr.OnCallStarted(context.Background(), "l1"); err != nil {
		t.Fatalf("expected no error for terminal lead, got %v", err)
	}

	got, _ := repo.Get(context.Background(), "l1")
	if got.Status != StatusCompleted {
		t.Fatalf("terminal lead must not move, got %s", got.Status)
	}

	events := auditRepo.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeLeadAnomaly {
		t.Fatalf("expected one lead anomaly event, got %+v", events)
	}
}

func TestOnCallStartedUnknownLead(t *testing.T) {
	tr, _, _ := newTestTracker()
	if err := tr.OnCallStarted(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOnCallTerminalRecordsOutcomeAndDuration(t *testing.T) {
	tr, repo, _ := newTestTracker()
	seedLead(t, repo, "l1", StatusCalling)
	seedLead(t, repo, "l2", StatusCalling)

	if err := tr.OnCallTerminal(context.Background(), "l1", true, 42); err != nil {
		t.Fatalf("terminal success: %v", err)
	}
	if err := tr.OnCallTerminal(context.Background(), "l2", false, 7); err != nil {
		t.Fatalf("terminal failure: %v", err)
	}

	got, _ := repo.Get(context.Background(), "l1")
	if got.Status != StatusCompleted || got.CallDurationSeconds == nil || *got.CallDurationSeconds != 42 {
		t.Fatalf("unexpected lead: %+v", got)
	}
	got, _ = repo.Get(context.Background(), "l2")
	if got.Status != StatusFailed || got.CallDurationSeconds == nil || *got.CallDurationSeconds != 7 {
		t.Fatalf("unexpected lead: %+v", got)
	}
}

func TestOnCallTerminalFromPendingIsLegal(t *testing.T) {
	// A call can fail before the started event lands (provider races).
	tr, repo, _ := newTestTracker()
	seedLead(t, repo, "l1", StatusPending)

	if err := tr.OnCallTerminal(context.Background(), "l1", false, 0); err != nil {
		t.Fatalf("terminal from pending: %v", err)
	}
	got, _ := repo.Get(context.Background(), "l1")
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestOnCallTerminalRejectsSecondOutcome(t *testing.T) {
	tr, repo, _ := newTestTracker()
	seedLead(t, repo, "l1", StatusCalling)

	if err := tr.OnCallTerminal(context.Background(), "l1", true, 10); err != nil {
		t.Fatalf("first terminal: %v", err)
	}
	err := tr.OnCallTerminal(context.Background(), "l1", false, 20)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	got, _ := repo.Get(context.Background(), "l1")
	if got.Status != StatusCompleted || *got.CallDurationSeconds != 10 {
		t.Fatalf("first outcome must stand: %+v", got)
	}
}
