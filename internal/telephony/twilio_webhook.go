package telephony

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voicedial-platform/internal/calllog"
)

// TwilioStatusForm captures the subset of status-callback fields we care
// about. Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/api/call-resource#statuscallback
//
// Keep it minimal and provider-adapter-only.
// Business logic (outcome handling) is not made here.

type TwilioStatusForm struct {
	CallSid        string
	AccountSid     string
	From           string
	To             string
	CallStatus     string
	CallDuration   string
	Direction      string
	Timestamp      string
	SequenceNumber string
	ErrorCode      string

	// ConversationID is a custom parameter threaded through by the voice
	// agent bridge when a synthesis session exists for the call.
	ConversationID string
}

func ParseTwilioStatusCallback(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	f := TwilioStatusForm{
		CallSid:        r.PostFormValue("CallSid"),
		AccountSid:     r.PostFormValue("AccountSid"),
		From:           normalizePhone(r.PostFormValue("From")),
		To:             normalizePhone(r.PostFormValue("To")),
		CallStatus:     r.PostFormValue("CallStatus"),
		CallDuration:   r.PostFormValue("CallDuration"),
		Direction:      r.PostFormValue("Direction"),
		Timestamp:      r.PostFormValue("Timestamp"),
		SequenceNumber: r.PostFormValue("SequenceNumber"),
		ErrorCode:      r.PostFormValue("ErrorCode"),
		ConversationID: r.PostFormValue("ConversationId"),
	}
	return f, nil
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return s
}

// MapTwilioCallStatus translates a Twilio call status into the internal call
// status. Busy, no-answer and canceled calls never connected to the voice
// agent, so they land as failed terminal outcomes.
func MapTwilioCallStatus(s string) (calllog.Status, bool) {
	switch s {
	case "queued", "initiated":
		return calllog.StatusInitiated, true
	case "ringing":
		return calllog.StatusRinging, true
	case "in-progress", "answered":
		return calllog.StatusAnswered, true
	case "completed":
		return calllog.StatusCompleted, true
	case "busy", "no-answer", "failed", "canceled":
		return calllog.StatusFailed, true
	default:
		return "", false
	}
}

// ToOutcomeEvent converts the parsed form into an internal event.
func (f TwilioStatusForm) ToOutcomeEvent(occurredAt time.Time) (OutcomeEvent, bool) {
	status, ok := MapTwilioCallStatus(f.CallStatus)
	if !ok {
		return OutcomeEvent{}, false
	}
	dur := 0
	if f.CallDuration != "" {
		if n, err := strconv.Atoi(f.CallDuration); err == nil {
			dur = n
		}
	}
	raw, _ := json.Marshal(f)
	return OutcomeEvent{
		ProviderCallID:  f.CallSid,
		Status:          status,
		DurationSeconds: dur,
		OccurredAt:      occurredAt,
		Raw:             string(raw),
	}, true
}
