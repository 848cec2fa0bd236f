package calllog

import "time"

// CallLog is one placed-call record, test or production.
//
// The set of call logs is an append-only ledger: a row only ever advances
// its status/duration while in flight and becomes immutable once terminal.
//
// Whether a log is a campaign call or a test call is never stored; it is a
// query-time partition (see Classify) so the classification cannot drift
// from the lead set.

type CallLog struct {
	ID string `json:"id" db:"id"`

	// CampaignID is empty for unattached test calls.
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`
	// LeadID is empty for test calls.
	LeadID string `json:"lead_id,omitempty" db:"lead_id"`

	PhoneNumber string `json:"phone_number" db:"phone_number"`

	Status Status `json:"status" db:"status"`

	// DurationSeconds is set when the call reaches a terminal status.
	DurationSeconds *int `json:"duration,omitempty" db:"duration"`

	// ProviderCallID is the telephony provider's identifier (Twilio CallSid).
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`

	// ConversationID is the voice provider's session identifier; presence
	// implies recorded audio exists and is retrievable by this id.
	ConversationID string `json:"conversation_id,omitempty" db:"conversation_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusRinging   Status = "ringing"
	StatusAnswered  Status = "answered"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders the in-flight statuses; terminal statuses are reachable from
// any in-flight status but never from each other.
func (s Status) rank() int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusRinging:
		return 1
	case StatusAnswered:
		return 2
	default:
		return 3
	}
}

// CanAdvance reports whether the edge from -> to is a legal progression.
// Progress events may skip stages (a call can fail while ringing) but never
// move backwards or out of a terminal status.
func CanAdvance(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to.Terminal() {
		return true
	}
	return to.rank() > from.rank()
}

// Class is the derived call classification.
type Class string

const (
	// ClassCampaignCall is a log whose lead reference matches a lead of the
	// same campaign.
	ClassCampaignCall Class = "campaign_call"
	// ClassTestCall is everything else: no lead reference, or a lead that is
	// not among the campaign's leads.
	ClassTestCall Class = "test_call"
)

// Classify partitions a log against the owning campaign's lead-ID set.
func Classify(cl CallLog, campaignLeadIDs map[string]struct{}) Class {
	if cl.LeadID == "" || cl.CampaignID == "" {
		return ClassTestCall
	}
	if _, ok := campaignLeadIDs[cl.LeadID]; !ok {
		return ClassTestCall
	}
	return ClassCampaignCall
}
