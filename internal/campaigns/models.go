package campaigns

import "time"

// Campaign is a configured batch of outbound AI-voice calls sharing a
// persona/prompt and a synthesis voice.
//
// Counter invariants:
// - Counters are monotonically non-decreasing while the campaign is active.
// - SuccessfulCalls + FailedCalls <= CompletedCalls at all times.
// - Only the aggregator Service writes Status and the four counters.

type Campaign struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// Prompt is the persona/instruction text handed to the voice agent.
	Prompt string `json:"prompt" db:"prompt"`

	// VoiceID references a voices.Voice. Required before the campaign can start.
	VoiceID string `json:"voice_id,omitempty" db:"voice_id"`

	Status Status `json:"status" db:"status"`

	TotalLeads      int `json:"total_leads" db:"total_leads"`
	CompletedCalls  int `json:"completed_calls" db:"completed_calls"`
	SuccessfulCalls int `json:"successful_calls" db:"successful_calls"`
	FailedCalls     int `json:"failed_calls" db:"failed_calls"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// CanTransition reports whether the edge from -> to is permitted.
// The ordering is draft -> active <-> paused, and active/paused -> completed.
// completed is terminal; self-loops are rejected.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusActive
	case StatusActive:
		return to == StatusPaused || to == StatusCompleted
	case StatusPaused:
		return to == StatusActive || to == StatusCompleted
	default:
		return false
	}
}

func IsValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return true
	default:
		return false
	}
}
