package stats

import (
	"time"

	"voicedial-platform/internal/calllog"
	"voicedial-platform/internal/campaigns"
	"voicedial-platform/internal/leads"
)

// Snapshot is the point-in-time state the reporter derives from. All reporter
// outputs are pure functions of a snapshot; there is no hidden state.

type Snapshot struct {
	Campaign campaigns.Campaign
	Leads    []leads.Lead
	Logs     []calllog.CallLog
}

// CampaignStats is the dashboard figure set for one campaign.
type CampaignStats struct {
	CampaignID string `json:"campaign_id"`

	TotalLeads     int `json:"total_leads"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	PendingLeads   int `json:"pending_leads"`

	// SuccessRatePercent is successfulCalls/completedCalls expressed as a
	// percentage; explicitly 0 (never NaN) when no calls completed.
	SuccessRatePercent float64 `json:"success_rate_percent"`

	AverageDurationSeconds float64 `json:"average_duration_seconds"`

	// CallsToday counts logs created on the same calendar day as the
	// reporting instant, in the reporter's configured time zone.
	CallsToday int `json:"calls_today"`

	GeneratedAt time.Time `json:"generated_at"`
}
