package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"voicedial-platform/internal/calllog"
	"voicedial-platform/internal/domain"

	"github.com/gin-gonic/gin"
)

func TestMapTwilioCallStatus(t *testing.T) {
	cases := []struct {
		in   string
		want calllog.Status
		ok   bool
	}{
		{"queued", calllog.StatusInitiated, true},
		{"initiated", calllog.StatusInitiated, true},
		{"ringing", calllog.StatusRinging, true},
		{"in-progress", calllog.StatusAnswered, true},
		{"answered", calllog.StatusAnswered, true},
		{"completed", calllog.StatusCompleted, true},
		{"busy", calllog.StatusFailed, true},
		{"no-answer", calllog.StatusFailed, true},
		{"failed", calllog.StatusFailed, true},
		{"canceled", calllog.StatusFailed, true},
		{"garbage", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := MapTwilioCallStatus(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("MapTwilioCallStatus(%q) = (%s, %v), want (%s, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseTwilioStatusCallback(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("CallStatus", "completed")
	form.Set("CallDuration", "42")
	form.Set("To", " +15550100 ")
	form.Set("ConversationId", "conv-7")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, err := ParseTwilioStatusCallback(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.CallSid != "CA123" || f.CallStatus != "completed" || f.CallDuration != "42" {
		t.Fatalf("unexpected form: %+v", f)
	}
	if f.To != "+15550100" {
		t.Fatalf("phone not trimmed: %q", f.To)
	}
	if f.ConversationID != "conv-7" {
		t.Fatalf("conversation id: %q", f.ConversationID)
	}

	ev, ok := f.ToOutcomeEvent(time.Unix(1700000000, 0).UTC())
	if !ok {
		t.Fatalf("expected event")
	}
	if ev.ProviderCallID != "CA123" || ev.Status != calllog.StatusCompleted || ev.DurationSeconds != 42 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !strings.Contains(ev.Raw, "CA123") {
		t.Fatalf("raw payload must carry the original callback: %q", ev.Raw)
	}
}

type fakeRecorder struct {
	err      error
	got      calllog.Status
	gotSid   string
	gotDur   int
	gotConv  string
	released string
}

func (f *fakeRecorder) RecordOutcomeByProviderCallID(ctx context.Context, sid string, status calllog.Status, dur int, conv string) (calllog.CallLog, error) {
	f.gotSid, f.got, f.gotDur, f.gotConv = sid, status, dur, conv
	if f.err != nil {
		return calllog.CallLog{}, f.err
	}
	return calllog.CallLog{ID: "log-1", CampaignID: "c1", Status: status}, nil
}

func postStatusCallback(t *testing.T, h TwilioStatusWebhookHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/twilio/status", h.HandleStatusCallback)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func terminalForm() url.Values {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("CallStatus", "completed")
	form.Set("CallDuration", "30")
	return form
}

func TestStatusCallbackHappyPath(t *testing.T) {
	rec := &fakeRecorder{}
	h := TwilioStatusWebhookHandler{
		Calls: rec,
		ReleaseDialSlot: func(ctx context.Context, campaignID string) {
			rec.released = campaignID
		},
	}

	w := postStatusCallback(t, h, terminalForm())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if rec.gotSid != "CA123" || rec.got != calllog.StatusCompleted || rec.gotDur != 30 {
		t.Fatalf("unexpected recorder call: %+v", rec)
	}
	if rec.released != "c1" {
		t.Fatalf("expected dial slot release for c1, got %q", rec.released)
	}
}

func TestStatusCallbackDuplicateTerminalIsAcked(t *testing.T) {
	rec := &fakeRecorder{err: domain.InvalidTransitionf("call log-1 is already completed")}
	w := postStatusCallback(t, TwilioStatusWebhookHandler{Calls: rec}, terminalForm())
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate delivery must be acked with 200, got %d", w.Code)
	}
}

func TestStatusCallbackUnknownCall(t *testing.T) {
	rec := &fakeRecorder{err: domain.NotFoundf("call CA123")}
	w := postStatusCallback(t, TwilioStatusWebhookHandler{Calls: rec}, terminalForm())
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStatusCallbackRejectsBadInput(t *testing.T) {
	rec := &fakeRecorder{}
	h := TwilioStatusWebhookHandler{Calls: rec}

	noSid := url.Values{}
	noSid.Set("CallStatus", "completed")
	if w := postStatusCallback(t, h, noSid); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing CallSid, got %d", w.Code)
	}

	badStatus := url.Values{}
	badStatus.Set("CallSid", "CA123")
	badStatus.Set("CallStatus", "garbage")
	if w := postStatusCallback(t, h, badStatus); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
}
