package leads

import "time"

// Lead is a single contact targeted by a campaign.
//
// Status is monotone along pending -> calling -> {completed, failed};
// there is no transition out of a terminal state. A lead is dialed to a
// terminal outcome at most once; redial policy, if any, lives outside
// the tracker.

type Lead struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`

	PhoneNumber string `json:"phone_number" db:"phone_number"`
	FirstName   string `json:"first_name,omitempty" db:"first_name"`
	LastName    string `json:"last_name,omitempty" db:"last_name"`

	Status Status `json:"status" db:"status"`

	// CallDurationSeconds is set when the lead reaches a terminal status.
	CallDurationSeconds *int `json:"call_duration,omitempty" db:"call_duration"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCalling   Status = "calling"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
