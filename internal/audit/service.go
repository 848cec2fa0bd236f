package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal operational events.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to dashboard users
//   by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogStatusChange records a campaign status transition.
func (s *Service) LogStatusChange(ctx context.Context, campaignID, actorUserID, from, to string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeStatusChange,
		ActorUserID: actorUserID,
		CampaignID:  campaignID,
		Message:     from + " -> " + to,
	})
}

// LogLeadAnomaly records a non-fatal lead tracker anomaly.
func (s *Service) LogLeadAnomaly(ctx context.Context, campaignID, leadID, message string) error {
	return s.Append(ctx, Event{
		Type:       EventTypeLeadAnomaly,
		CampaignID: campaignID,
		LeadID:     leadID,
		Message:    message,
	})
}

// LogOutcomeRejected records a rejected call-outcome event.
func (s *Service) LogOutcomeRejected(ctx context.Context, campaignID, callLogID, message string) error {
	return s.Append(ctx, Event{
		Type:       EventTypeOutcomeRejected,
		CampaignID: campaignID,
		CallLogID:  callLogID,
		Message:    message,
	})
}
