package campaigns

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voicedial-platform/internal/audit"
	"voicedial-platform/internal/domain"
	"voicedial-platform/internal/leads"
)

func newTestService() (*Service, *MemoryRepo, *leads.MemoryRepo, *audit.MemoryRepo) {
	repo := NewMemoryRepo()
	leadRepo := leads.NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	svc := NewService(repo, leadRepo, audit.NewService(auditRepo))
	svc.clock = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, leadRepo, auditRepo
}

func mustCreate(t *testing.T, svc *Service, name, voiceID string) Campaign {
	t.Helper()
	c, err := svc.Create(context.Background(), CreateRequest{Name: name, Prompt: "p", VoiceID: voiceID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return c
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateRequest{Name: "   "})
	if !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}

func TestCreateStartsInDraft(t *testing.T) {
	svc, _, _, _ := newTestService()
	c := mustCreate(t, svc, "summer", "v1")
	if c.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", c.Status)
	}
	if c.TotalLeads != 0 || c.CompletedCalls != 0 {
		t.Fatalf("expected zero counters: %+v", c)
	}
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusDraft, StatusActive, true},
		{StatusDraft, StatusPaused, false},
		{StatusDraft, StatusCompleted, false},
		{StatusActive, StatusPaused, true},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusDraft, false},
		{StatusPaused, StatusActive, true},
		{StatusPaused, StatusCompleted, true},
		{StatusPaused, StatusDraft, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusPaused, false},
		{StatusActive, StatusActive, false},
		{StatusDraft, StatusDraft, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestTransitionStatusRejectsIllegalEdge(t *testing.T) {
	svc, _, _, _ := newTestService()
	c := mustCreate(t, svc, "c", "v1")

	err := svc.TransitionStatus(context.Background(), c.ID, StatusPaused)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	err = svc.TransitionStatus(context.Background(), c.ID, Status("bogus"))
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for unknown status, got %v", err)
	}
}

func TestTransitionStatusCompletedIsTerminal(t *testing.T) {
	svc, _, _, _ := newTestService()
	c := mustCreate(t, svc, "c", "v1")
	ctx := context.Background()

	for _, target := range []Status{StatusActive, StatusCompleted} {
		if err := svc.TransitionStatus(ctx, c.ID, target); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}
	if err := svc.TransitionStatus(ctx, c.ID, StatusActive); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition out of completed, got %v", err)
	}
}

func TestTransitionStatusRecordsAudit(t *testing.T) {
	svc, _, _, auditRepo := newTestService()
	c := mustCreate(t, svc, "c", "v1")

	if err := svc.TransitionStatus(context.Background(), c.ID, StatusActive); err != nil {
		t.Fatalf("transition: %v", err)
	}

	events := auditRepo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	if events[0].Type != audit.EventTypeStatusChange || events[0].CampaignID != c.ID {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestImportLeads(t *testing.T) {
	svc, _, _, _ := newTestService()
	c := mustCreate(t, svc, "c", "v1")
	ctx := context.Background()

	created, err := svc.ImportLeads(ctx, c.ID, []NewLead{
		{PhoneNumber: "+15550100", FirstName: "Ada"},
		{PhoneNumber: "+15550101"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(created))
	}
	for _, l := range created {
		if l.Status != leads.StatusPending || l.CampaignID != c.ID {
			t.Fatalf("unexpected lead: %+v", l)
		}
	}

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalLeads != 2 {
		t.Fatalf("expected TotalLeads=2, got %d", got.TotalLeads)
	}
}

func TestImportLeadsValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	c := mustCreate(t, svc, "c", "v1")
	ctx := context.Background()

	if _, err := svc.ImportLeads(ctx, c.ID, nil); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure for empty batch, got %v", err)
	}
	if _, err := svc.ImportLeads(ctx, c.ID, []NewLead{{PhoneNumber: " "}}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure for blank phone, got %v", err)
	}
	if _, err := svc.ImportLeads(ctx, "missing", []NewLead{{PhoneNumber: "+1"}}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestImportLeadsRejectedOnCompletedCampaign(t *testing.T) {
	svc, _, _, _ := newTestService()
	c := mustCreate(t, svc, "c", "v1")
	ctx := context.Background()

	if err := svc.TransitionStatus(ctx, c.ID, StatusActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := svc.TransitionStatus(ctx, c.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := svc.ImportLeads(ctx, c.ID, []NewLead{{PhoneNumber: "+1"}})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestStartPreconditionsAreNamed(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	noLeads := mustCreate(t, svc, "no-leads", "v1")
	if _, err := svc.Start(ctx, noLeads.ID); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure for no leads, got %v", err)
	}

	noVoice := mustCreate(t, svc, "no-voice", "")
	if _, err := svc.ImportLeads(ctx, noVoice.ID, []NewLead{{PhoneNumber: "+1"}}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := svc.Start(ctx, noVoice.ID); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure for no voice, got %v", err)
	}

	ready := mustCreate(t, svc, "ready", "v1")
	if _, err := svc.ImportLeads(ctx, ready.ID, []NewLead{{PhoneNumber: "+1"}}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := svc.TransitionStatus(ctx, ready.ID, StatusActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := svc.Start(ctx, ready.ID); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure when already active, got %v", err)
	}
}

func TestStartActivatesAndReturnsPendingLeads(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	c := mustCreate(t, svc, "c", "v1")

	if _, err := svc.ImportLeads(ctx, c.ID, []NewLead{
		{PhoneNumber: "+15550100"},
		{PhoneNumber: "+15550101"},
		{PhoneNumber: "+15550102"},
	}); err != nil {
		t.Fatalf("import: %v", err)
	}

	res, err := svc.Start(ctx, c.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Campaign.Status != StatusActive {
		t.Fatalf("expected active, got %s", res.Campaign.Status)
	}
	if len(res.EligibleLeads) != 3 {
		t.Fatalf("expected 3 eligible leads, got %d", len(res.EligibleLeads))
	}

	// Pause and restart: still legal, pending leads unchanged.
	if err := svc.TransitionStatus(ctx, c.ID, StatusPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	res, err = svc.Start(ctx, c.ID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if len(res.EligibleLeads) != 3 {
		t.Fatalf("expected 3 eligible leads after restart, got %d", len(res.EligibleLeads))
	}
}

func TestOnCallTerminalCounters(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	c := mustCreate(t, svc, "c", "v1")

	if err := svc.OnCallTerminal(ctx, c.ID, "lead-1", true); err != nil {
		t.Fatalf("terminal success: %v", err)
	}
	if err := svc.OnCallTerminal(ctx, c.ID, "lead-2", false); err != nil {
		t.Fatalf("terminal failure: %v", err)
	}

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CompletedCalls != 2 || got.SuccessfulCalls != 1 || got.FailedCalls != 1 {
		t.Fatalf("unexpected counters: %+v", got)
	}

	if err := svc.OnCallTerminal(ctx, "missing", "lead-3", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOnCallTerminalConcurrent(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	c := mustCreate(t, svc, "c", "v1")

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if err := svc.OnCallTerminal(ctx, c.ID, "", i%2 == 0); err != nil {
				t.Errorf("terminal: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CompletedCalls != n {
		t.Fatalf("expected %d completed calls, got %d", n, got.CompletedCalls)
	}
	if got.SuccessfulCalls+got.FailedCalls != got.CompletedCalls {
		t.Fatalf("counter drift: %+v", got)
	}
}
