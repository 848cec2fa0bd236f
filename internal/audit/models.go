package audit

import "time"

// Event is an immutable, append-only operational log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Recording is best-effort; call flows must not block on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if any).
	// Provider webhooks and internal flows leave it empty.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`

	// Target identifiers (optional, depending on the event type).
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`
	LeadID     string `json:"lead_id,omitempty" db:"lead_id"`
	CallLogID  string `json:"call_log_id,omitempty" db:"call_log_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	// EventTypeStatusChange records a campaign status transition.
	EventTypeStatusChange EventType = "campaign_status_change"

	// EventTypeLeadAnomaly records a non-fatal lead tracker anomaly,
	// e.g. a call-started event for a lead already in a terminal state.
	EventTypeLeadAnomaly EventType = "lead_anomaly"

	// EventTypeOutcomeRejected records a call-outcome event that was
	// rejected (duplicate terminal delivery, unknown call, bad edge).
	EventTypeOutcomeRejected EventType = "call_outcome_rejected"
)
