package telephony

import (
	"context"
	"time"

	"voicedial-platform/internal/calllog"
)

// OutboundProvider is the provider-agnostic interface for placing calls.
//
// Rules:
// - No provider SDK/REST calls outside telephony adapters.
// - Keep request/response types provider-agnostic; raw provider payloads go
//   into OutcomeEvent.Raw if needed.
// - The provider only places calls; terminal status and duration arrive
//   later through the status webhook as OutcomeEvents. Call timeout
//   detection is the provider's job and eventually surfaces as a failed
//   outcome — the core never times a call out itself.
type OutboundProvider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error)
}

// PlaceCallRequest asks the provider to dial a number.
type PlaceCallRequest struct {
	// To is E.164 where possible.
	To string `json:"to"`

	// CampaignID/LeadID are threaded through so the status callback can be
	// correlated without provider-side state.
	CampaignID string `json:"campaign_id,omitempty"`
	LeadID     string `json:"lead_id,omitempty"`
}

type PlaceCallResult struct {
	// ProviderCallID is the provider's unique identifier for the call
	// (Twilio CallSid).
	ProviderCallID string `json:"provider_call_id"`
}

// OutcomeEvent is a provider status callback translated to internal terms.
type OutcomeEvent struct {
	ProviderCallID string         `json:"provider_call_id"`
	Status         calllog.Status `json:"status"`

	// DurationSeconds is meaningful for terminal events only.
	DurationSeconds int `json:"duration_seconds"`

	// OccurredAt is the provider event time.
	OccurredAt time.Time `json:"occurred_at"`

	// Raw is the original callback payload as a JSON string; the webhook
	// handler attaches it to its ignored/failed log lines so provider
	// disputes can be traced without a Twilio console session.
	Raw string `json:"raw,omitempty"`
}
