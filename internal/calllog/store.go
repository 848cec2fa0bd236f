package calllog

import (
	"context"
	"errors"
	"time"

	"voicedial-platform/internal/audit"
	"voicedial-platform/internal/domain"
	"voicedial-platform/internal/leads"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call logs.
//
// Update is compare-and-swap shaped on the previous status so concurrent
// progress events for the same call cannot silently overwrite each other.

type Repository interface {
	Get(ctx context.Context, id string) (CallLog, error)
	GetByProviderCallID(ctx context.Context, providerCallID string) (CallLog, error)
	Create(ctx context.Context, cl CallLog) error

	// Update persists cl; it must fail with domain.ErrConflictingUpdate if
	// the stored status is no longer from.
	Update(ctx context.Context, cl CallLog, from Status) error

	// ListByCampaign returns the campaign's logs oldest first.
	ListByCampaign(ctx context.Context, campaignID string) ([]CallLog, error)
}

// CampaignDirectory is the slice of the campaigns module the store needs.
type CampaignDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Aggregator receives exactly one event per terminal call transition.
type Aggregator interface {
	OnCallTerminal(ctx context.Context, campaignID, leadID string, success bool) error
}

// LeadTracker advances lead progress from call events.
type LeadTracker interface {
	OnCallStarted(ctx context.Context, leadID string) error
	OnCallTerminal(ctx context.Context, leadID string, success bool, durationSeconds int) error
}

// LeadDirectory resolves leads for campaign-membership matching.
type LeadDirectory interface {
	Get(ctx context.Context, id string) (leads.Lead, error)
}

// Store appends call-outcome events and answers point-in-time queries over
// the call-log set.
//
// Failure contract: a rejected event performs no partial mutation.
// Aggregation runs at most once per terminal transition, strictly after the
// transition is committed on the call row; it is never retried here and
// failures surface to the caller.
type Store struct {
	repo      Repository
	campaigns CampaignDirectory
	leadDir   LeadDirectory
	tracker   LeadTracker
	agg       Aggregator
	audit     *audit.Service

	clock func() time.Time
}

func NewStore(repo Repository, campaigns CampaignDirectory, leadDir LeadDirectory, tracker LeadTracker, agg Aggregator, auditSvc *audit.Service) *Store {
	return &Store{
		repo:      repo,
		campaigns: campaigns,
		leadDir:   leadDir,
		tracker:   tracker,
		agg:       agg,
		audit:     auditSvc,
		clock:     time.Now,
	}
}

// RecordCallStarted appends a new call-log row in the initiated status.
//
// campaignID may be empty: unattached test calls are legal. A non-empty
// campaignID must reference an existing campaign. A non-empty leadID must
// reference an existing lead; its progress moves to calling.
func (s *Store) RecordCallStarted(ctx context.Context, campaignID, leadID, phoneNumber, providerCallID string) (CallLog, error) {
	if phoneNumber == "" {
		return CallLog{}, domain.PreconditionFailedf("phone number is required")
	}

	if campaignID != "" {
		ok, err := s.campaigns.Exists(ctx, campaignID)
		if err != nil {
			return CallLog{}, err
		}
		if !ok {
			return CallLog{}, domain.NotFoundf("campaign %s", campaignID)
		}
	}

	if leadID != "" {
		if _, err := s.leadDir.Get(ctx, leadID); err != nil {
			return CallLog{}, err
		}
		if err := s.tracker.OnCallStarted(ctx, leadID); err != nil {
			return CallLog{}, err
		}
	}

	now := s.clock().UTC()
	cl := CallLog{
		ID:             uuid.NewString(),
		CampaignID:     campaignID,
		LeadID:         leadID,
		PhoneNumber:    phoneNumber,
		Status:         StatusInitiated,
		ProviderCallID: providerCallID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, cl); err != nil {
		return CallLog{}, err
	}
	return cl, nil
}

// RecordCallOutcome advances a call log. Non-terminal statuses (ringing,
// answered) only move the status forward. A terminal status additionally
// records duration and conversation id, advances the matched lead, and
// triggers exactly one campaign aggregation.
//
// Events against a call that is already terminal are rejected with
// InvalidTransition, not silently applied, to prevent double-counting.
func (s *Store) RecordCallOutcome(ctx context.Context, callLogID string, status Status, durationSeconds int, conversationID string) (CallLog, error) {
	cl, err := s.repo.Get(ctx, callLogID)
	if err != nil {
		return CallLog{}, err
	}
	return s.applyOutcome(ctx, cl, status, durationSeconds, conversationID)
}

// RecordOutcomeByProviderCallID is RecordCallOutcome keyed by the telephony
// provider's call identifier, for webhook delivery.
func (s *Store) RecordOutcomeByProviderCallID(ctx context.Context, providerCallID string, status Status, durationSeconds int, conversationID string) (CallLog, error) {
	cl, err := s.repo.GetByProviderCallID(ctx, providerCallID)
	if err != nil {
		return CallLog{}, err
	}
	return s.applyOutcome(ctx, cl, status, durationSeconds, conversationID)
}

func (s *Store) applyOutcome(ctx context.Context, cl CallLog, status Status, durationSeconds int, conversationID string) (CallLog, error) {
	if cl.Status.Terminal() {
		err := domain.InvalidTransitionf("call %s is already %s", cl.ID, cl.Status)
		if s.audit != nil {
			_ = s.audit.LogOutcomeRejected(ctx, cl.CampaignID, cl.ID, err.Error())
		}
		return CallLog{}, err
	}
	if !CanAdvance(cl.Status, status) {
		return CallLog{}, domain.InvalidTransitionf("call %s: %s -> %s", cl.ID, cl.Status, status)
	}

	prev := cl.Status
	now := s.clock().UTC()

	if !status.Terminal() {
		cl.Status = status
		cl.UpdatedAt = now
		if err := s.repo.Update(ctx, cl, prev); err != nil {
			return CallLog{}, err
		}
		return cl, nil
	}

	success := status == StatusCompleted

	// Terminal sequencing: the lead edge is the only step that can reject,
	// so it runs first and a rejected event mutates nothing. The
	// compare-and-swap below then claims the call's terminal transition;
	// concurrent duplicates that slipped past the stale read above lose the
	// swap and are rejected before any counter moves.
	if s.matchedLead(ctx, cl) {
		if err := s.tracker.OnCallTerminal(ctx, cl.LeadID, success, durationSeconds); err != nil {
			if s.audit != nil {
				_ = s.audit.LogOutcomeRejected(ctx, cl.CampaignID, cl.ID, err.Error())
			}
			return CallLog{}, err
		}
	}

	cl.Status = status
	dur := durationSeconds
	cl.DurationSeconds = &dur
	if conversationID != "" {
		cl.ConversationID = conversationID
	}
	cl.UpdatedAt = now
	if err := s.repo.Update(ctx, cl, prev); err != nil {
		if errors.Is(err, domain.ErrConflictingUpdate) {
			// Lost the race on this row. If the winner was terminal, report
			// the same duplicate rejection the stale-read path produces.
			if cur, gerr := s.repo.Get(ctx, cl.ID); gerr == nil && cur.Status.Terminal() {
				rejected := domain.InvalidTransitionf("call %s is already %s", cl.ID, cur.Status)
				if s.audit != nil {
					_ = s.audit.LogOutcomeRejected(ctx, cl.CampaignID, cl.ID, rejected.Error())
				}
				return CallLog{}, rejected
			}
		}
		return CallLog{}, err
	}

	// Counters move only after the transition is committed, so the campaign
	// aggregates at most once per call. A failure here surfaces to the
	// caller and is never retried.
	if cl.CampaignID != "" {
		if err := s.agg.OnCallTerminal(ctx, cl.CampaignID, cl.LeadID, success); err != nil {
			return CallLog{}, err
		}
	}
	return cl, nil
}

// matchedLead reports whether cl references a lead belonging to the same
// campaign; only such calls advance lead progress. All other logs are test
// calls by classification and leave the lead set untouched.
func (s *Store) matchedLead(ctx context.Context, cl CallLog) bool {
	if cl.LeadID == "" || cl.CampaignID == "" {
		return false
	}
	l, err := s.leadDir.Get(ctx, cl.LeadID)
	if err != nil {
		return false
	}
	return l.CampaignID == cl.CampaignID
}

func (s *Store) Get(ctx context.Context, id string) (CallLog, error) {
	return s.repo.Get(ctx, id)
}

// ListByCampaign returns the campaign's call logs oldest first.
func (s *Store) ListByCampaign(ctx context.Context, campaignID string) ([]CallLog, error) {
	return s.repo.ListByCampaign(ctx, campaignID)
}
