package stats

import (
	"context"
	"time"

	"voicedial-platform/internal/calllog"
	"voicedial-platform/internal/campaigns"
	"voicedial-platform/internal/leads"
)

// SuccessRate returns successful/completed as a percentage.
// Returns 0 when no calls completed, guarding the division-by-zero edge.
func SuccessRate(successful, completed int) float64 {
	if completed <= 0 {
		return 0
	}
	return float64(successful) / float64(completed) * 100
}

// AverageDuration returns the mean of the non-nil durations across terminal
// logs, in seconds. Returns 0 when no terminal call carries a duration.
func AverageDuration(logs []calllog.CallLog) float64 {
	total, n := 0, 0
	for _, cl := range logs {
		if !cl.Status.Terminal() || cl.DurationSeconds == nil {
			continue
		}
		total += *cl.DurationSeconds
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// CallsToday counts logs created on the same calendar day as now. The time
// zone is an explicit parameter, never an ambient default; day boundaries
// move with the zone.
func CallsToday(logs []calllog.CallLog, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	n := 0
	for _, cl := range logs {
		ly, lm, ld := cl.CreatedAt.In(loc).Date()
		if ly == y && lm == m && ld == d {
			n++
		}
	}
	return n
}

// Compute derives the full dashboard figure set from a snapshot.
// Pure: no I/O, no mutation of the snapshot.
func Compute(snap Snapshot, now time.Time, loc *time.Location) CampaignStats {
	pending := 0
	for _, l := range snap.Leads {
		if l.Status == leads.StatusPending {
			pending++
		}
	}

	c := snap.Campaign
	return CampaignStats{
		CampaignID:             c.ID,
		TotalLeads:             c.TotalLeads,
		CompletedCalls:         c.CompletedCalls,
		FailedCalls:            c.FailedCalls,
		PendingLeads:           pending,
		SuccessRatePercent:     SuccessRate(c.SuccessfulCalls, c.CompletedCalls),
		AverageDurationSeconds: AverageDuration(snap.Logs),
		CallsToday:             CallsToday(snap.Logs, now, loc),
		GeneratedAt:            now,
	}
}

// CampaignSource, LeadSource and CallLogSource are the read-only slices of
// the sibling modules the reporter consumes.

type CampaignSource interface {
	Get(ctx context.Context, id string) (campaigns.Campaign, error)
}

type LeadSource interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]leads.Lead, error)
}

type CallLogSource interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]calllog.CallLog, error)
}

// Service materializes dashboard figures on demand. It never mutates
// campaign, lead or call-log state.
type Service struct {
	campaigns CampaignSource
	leads     LeadSource
	logs      CallLogSource

	cache *Cache
	loc   *time.Location
	clock func() time.Time
}

func NewService(campaignSrc CampaignSource, leadSrc LeadSource, logSrc CallLogSource, cache *Cache, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		campaigns: campaignSrc,
		leads:     leadSrc,
		logs:      logSrc,
		cache:     cache,
		loc:       loc,
		clock:     time.Now,
	}
}

// InvalidateCampaign drops cached figures; callers use it when a terminal
// call outcome moves the campaign's numbers.
func (s *Service) InvalidateCampaign(ctx context.Context, campaignID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, campaignID)
	}
}

// CampaignStats assembles a snapshot and computes its figures, consulting the
// cache first when one is configured. Cache failures degrade to a live
// computation; they are never surfaced.
func (s *Service) CampaignStats(ctx context.Context, campaignID string) (CampaignStats, error) {
	if s.cache != nil {
		if out, ok := s.cache.Get(ctx, campaignID); ok {
			return out, nil
		}
	}

	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return CampaignStats{}, err
	}
	ls, err := s.leads.ListByCampaign(ctx, campaignID)
	if err != nil {
		return CampaignStats{}, err
	}
	logs, err := s.logs.ListByCampaign(ctx, campaignID)
	if err != nil {
		return CampaignStats{}, err
	}

	out := Compute(Snapshot{Campaign: c, Leads: ls, Logs: logs}, s.clock().UTC(), s.loc)
	if s.cache != nil {
		s.cache.Set(ctx, out)
	}
	return out, nil
}
