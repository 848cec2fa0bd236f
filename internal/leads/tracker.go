package leads

import (
	"context"
	"time"

	"voicedial-platform/internal/audit"
	"voicedial-platform/internal/domain"
)

// Repository is the persistence contract for leads.
//
// UpdateStatus is compare-and-swap shaped: a write against a lead whose
// stored status has moved on fails with domain.ErrConflictingUpdate, so
// concurrent events for the same lead cannot silently overwrite each other.
// Two events for two different leads never contend above the row level.

type Repository interface {
	Get(ctx context.Context, id string) (Lead, error)
	CreateBatch(ctx context.Context, batch []Lead) error
	ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error)
	ListPending(ctx context.Context, campaignID string) ([]Lead, error)

	// UpdateStatus moves id from -> to, optionally recording the terminal
	// call duration. It must fail with domain.ErrConflictingUpdate if the
	// stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status, callDuration *int, now time.Time) error
}

// Tracker maintains each lead's derived status from the calls made
// against it.
type Tracker struct {
	repo  Repository
	audit *audit.Service
	clock func() time.Time
}

func NewTracker(repo Repository, auditSvc *audit.Service) *Tracker {
	return &Tracker{repo: repo, audit: auditSvc, clock: time.Now}
}

func (t *Tracker) Get(ctx context.Context, id string) (Lead, error) {
	return t.repo.Get(ctx, id)
}

func (t *Tracker) ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	return t.repo.ListByCampaign(ctx, campaignID)
}

// OnCallStarted marks the lead as calling.
//
// - pending -> calling
// - calling: no-op, a re-dial against an in-flight lead is legal
// - terminal: no-op, recorded as an anomaly but not fatal
func (t *Tracker) OnCallStarted(ctx context.Context, leadID string) error {
	l, err := t.repo.Get(ctx, leadID)
	if err != nil {
		return err
	}

	switch {
	case l.Status == StatusCalling:
		return nil
	case l.Status.Terminal():
		if t.audit != nil {
			_ = t.audit.LogLeadAnomaly(ctx, l.CampaignID, leadID, "call started for lead already "+string(l.Status))
		}
		return nil
	}

	return t.repo.UpdateStatus(ctx, leadID, StatusPending, StatusCalling, nil, t.clock().UTC())
}

// OnCallTerminal moves the lead to completed or failed and records the call
// duration. A lead already in a terminal state rejects the event: a lead is
// dialed at most once to a terminal outcome.
func (t *Tracker) OnCallTerminal(ctx context.Context, leadID string, success bool, durationSeconds int) error {
	l, err := t.repo.Get(ctx, leadID)
	if err != nil {
		return err
	}
	if l.Status.Terminal() {
		return domain.InvalidTransitionf("lead %s is already %s", leadID, l.Status)
	}

	target := StatusFailed
	if success {
		target = StatusCompleted
	}
	dur := durationSeconds
	return t.repo.UpdateStatus(ctx, leadID, l.Status, target, &dur, t.clock().UTC())
}
