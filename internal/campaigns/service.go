package campaigns

import (
	"context"
	"errors"
	"strings"
	"time"

	"voicedial-platform/internal/audit"
	"voicedial-platform/internal/domain"
	"voicedial-platform/internal/leads"

	"github.com/google/uuid"
)

// Repository is the persistence contract for campaigns.
//
// Counter and status writes are compare-and-swap shaped so a stale write is
// surfaced as domain.ErrConflictingUpdate instead of silently overwriting.

type Repository interface {
	Get(ctx context.Context, id string) (Campaign, error)
	Create(ctx context.Context, c Campaign) error
	List(ctx context.Context) ([]Campaign, error)

	// UpdateStatus moves id from -> to; it must fail with
	// domain.ErrConflictingUpdate if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) error

	// IncrementCounters atomically adds the deltas to the campaign's
	// call counters.
	IncrementCounters(ctx context.Context, id string, completed, successful, failed int, now time.Time) error

	// IncrementTotalLeads atomically adds n to the lead counter.
	IncrementTotalLeads(ctx context.Context, id string, n int, now time.Time) error
}

// LeadDirectory is the slice of the leads module the aggregator needs:
// enumerating dial-eligible leads and persisting imported ones.
type LeadDirectory interface {
	ListPending(ctx context.Context, campaignID string) ([]leads.Lead, error)
	CreateBatch(ctx context.Context, batch []leads.Lead) error
}

// Service is the campaign aggregator: the single source of truth for
// campaign-level counters and the only writer of Campaign.Status.
//
// Concurrency contract: every mutation of one campaign's aggregate state runs
// under a per-campaign critical section (keyed mutex here; the Postgres
// repository additionally serializes on the row). Distinct campaigns never
// block each other.
type Service struct {
	repo  Repository
	leads LeadDirectory
	audit *audit.Service

	locks *keyedMutex
	clock func() time.Time
}

func NewService(repo Repository, dir LeadDirectory, auditSvc *audit.Service) *Service {
	return &Service{
		repo:  repo,
		leads: dir,
		audit: auditSvc,
		locks: newKeyedMutex(),
		clock: time.Now,
	}
}

type CreateRequest struct {
	Name    string `json:"name"`
	Prompt  string `json:"prompt"`
	VoiceID string `json:"voice_id,omitempty"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Campaign, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Campaign{}, domain.PreconditionFailedf("campaign name is required")
	}

	now := s.clock().UTC()
	c := Campaign{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Prompt:    req.Prompt,
		VoiceID:   req.VoiceID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (Campaign, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Campaign, error) {
	return s.repo.List(ctx)
}

// Exists reports whether a campaign with the given id is present.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewLead is one imported contact row.
type NewLead struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

// ImportLeads creates leads under the campaign and bumps TotalLeads.
// Import is only permitted while the campaign is not completed.
func (s *Service) ImportLeads(ctx context.Context, campaignID string, batch []NewLead) ([]leads.Lead, error) {
	if len(batch) == 0 {
		return nil, domain.PreconditionFailedf("no leads supplied")
	}

	unlock := s.locks.Lock(campaignID)
	defer unlock()

	c, err := s.repo.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusCompleted {
		return nil, domain.InvalidTransitionf("cannot import leads into completed campaign %s", campaignID)
	}

	now := s.clock().UTC()
	created := make([]leads.Lead, 0, len(batch))
	for _, nl := range batch {
		if strings.TrimSpace(nl.PhoneNumber) == "" {
			return nil, domain.PreconditionFailedf("lead phone number is required")
		}
		created = append(created, leads.Lead{
			ID:          uuid.NewString(),
			CampaignID:  campaignID,
			PhoneNumber: strings.TrimSpace(nl.PhoneNumber),
			FirstName:   nl.FirstName,
			LastName:    nl.LastName,
			Status:      leads.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := s.leads.CreateBatch(ctx, created); err != nil {
		return nil, err
	}
	if err := s.repo.IncrementTotalLeads(ctx, campaignID, len(created), now); err != nil {
		return nil, err
	}
	return created, nil
}

// OnCallTerminal applies one terminal call outcome to the campaign counters.
// It is invoked exactly once per terminal CallLog transition, for campaign
// calls and campaign-referencing test calls alike. leadID is informational
// only; lead advancement belongs to the lead tracker.
func (s *Service) OnCallTerminal(ctx context.Context, campaignID, leadID string, success bool) error {
	if campaignID == "" {
		return domain.PreconditionFailedf("campaign id is required")
	}

	unlock := s.locks.Lock(campaignID)
	defer unlock()

	if _, err := s.repo.Get(ctx, campaignID); err != nil {
		return err
	}

	successful, failed := 0, 0
	if success {
		successful = 1
	} else {
		failed = 1
	}
	return s.repo.IncrementCounters(ctx, campaignID, 1, successful, failed, s.clock().UTC())
}

// TransitionStatus moves the campaign along
// draft -> active <-> paused -> completed.
func (s *Service) TransitionStatus(ctx context.Context, campaignID string, target Status) error {
	if !IsValidStatus(target) {
		return domain.InvalidTransitionf("unknown status %q", target)
	}

	unlock := s.locks.Lock(campaignID)
	defer unlock()

	c, err := s.repo.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	if !CanTransition(c.Status, target) {
		return domain.InvalidTransitionf("campaign %s: %s -> %s", campaignID, c.Status, target)
	}
	if err := s.repo.UpdateStatus(ctx, campaignID, c.Status, target, s.clock().UTC()); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.LogStatusChange(ctx, campaignID, "", string(c.Status), string(target))
	}
	return nil
}

// StartResult is what the dial loop needs to begin working a campaign.
type StartResult struct {
	Campaign      Campaign     `json:"campaign"`
	EligibleLeads []leads.Lead `json:"eligible_leads"`
}

// Start validates the dial preconditions, activates the campaign and returns
// the leads still eligible for dialing (status pending).
//
// Preconditions, each reported by name:
// - the campaign has at least one lead
// - a voice is selected
// - the campaign is in draft or paused status
func (s *Service) Start(ctx context.Context, campaignID string) (StartResult, error) {
	unlock := s.locks.Lock(campaignID)
	defer unlock()

	c, err := s.repo.Get(ctx, campaignID)
	if err != nil {
		return StartResult{}, err
	}
	if c.TotalLeads == 0 {
		return StartResult{}, domain.PreconditionFailedf("campaign %s has no leads", campaignID)
	}
	if c.VoiceID == "" {
		return StartResult{}, domain.PreconditionFailedf("campaign %s has no voice selected", campaignID)
	}
	if c.Status != StatusDraft && c.Status != StatusPaused {
		return StartResult{}, domain.PreconditionFailedf("campaign %s is %s, not draft or paused", campaignID, c.Status)
	}

	eligible, err := s.leads.ListPending(ctx, campaignID)
	if err != nil {
		return StartResult{}, err
	}

	if err := s.repo.UpdateStatus(ctx, campaignID, c.Status, StatusActive, s.clock().UTC()); err != nil {
		return StartResult{}, err
	}
	if s.audit != nil {
		_ = s.audit.LogStatusChange(ctx, campaignID, "", string(c.Status), string(StatusActive))
	}

	c.Status = StatusActive
	return StartResult{Campaign: c, EligibleLeads: eligible}, nil
}
