package telephony

import (
	"context"
	"errors"
	"net/http"
	"time"

	"voicedial-platform/internal/calllog"
	"voicedial-platform/internal/domain"
	"voicedial-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// OutcomeRecorder is the call-record-store slice the webhook needs.
type OutcomeRecorder interface {
	RecordOutcomeByProviderCallID(ctx context.Context, providerCallID string, status calllog.Status, durationSeconds int, conversationID string) (calllog.CallLog, error)
}

// TwilioStatusWebhookHandler converts Twilio status callbacks to internal
// outcome events and feeds them to the call record store.
//
// No business logic here.
//
// Response policy: Twilio retries on non-2xx. Duplicate terminal deliveries
// are acknowledged with 200 (the first delivery already landed); unknown
// call sids get 404 so misrouted callbacks surface in provider logs.

type TwilioStatusWebhookHandler struct {
	Calls OutcomeRecorder

	// ReleaseDialSlot frees the campaign's concurrent-dial slot once the
	// call reaches a terminal status. Optional.
	ReleaseDialSlot func(ctx context.Context, campaignID string)

	Now func() time.Time
}

func (h TwilioStatusWebhookHandler) HandleStatusCallback(c *gin.Context) {
	log := logger.FromGin(c)

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}

	form, err := ParseTwilioStatusCallback(c.Request)
	if err != nil {
		log.Warn("twilio status callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return
	}

	ev, ok := form.ToOutcomeEvent(now().UTC())
	if !ok {
		log.Warn("twilio status callback with unknown status", "call_sid", form.CallSid, "status", form.CallStatus)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown call status"})
		return
	}

	cl, err := h.Calls.RecordOutcomeByProviderCallID(c.Request.Context(), ev.ProviderCallID, ev.Status, ev.DurationSeconds, form.ConversationID)
	switch {
	case err == nil:
		if cl.Status.Terminal() && h.ReleaseDialSlot != nil {
			h.ReleaseDialSlot(c.Request.Context(), cl.CampaignID)
		}
		c.Status(http.StatusOK)
	case errors.Is(err, domain.ErrInvalidTransition):
		// Duplicate or late delivery against a terminal call; ack so the
		// provider stops retrying.
		log.Info("twilio status callback ignored", "call_sid", ev.ProviderCallID, "reason", err.Error(), "payload", ev.Raw)
		c.Status(http.StatusOK)
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
	default:
		log.Error("twilio status callback failed", "call_sid", ev.ProviderCallID, "err", err, "payload", ev.Raw)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "outcome handling failed"})
	}
}
