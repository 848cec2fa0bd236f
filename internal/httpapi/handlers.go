package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"voicedial-platform/internal/auth"
	"voicedial-platform/internal/calllog"
	"voicedial-platform/internal/campaigns"
	"voicedial-platform/internal/domain"
	"voicedial-platform/internal/leads"
	"voicedial-platform/internal/stats"
	"voicedial-platform/internal/telephony"
	"voicedial-platform/internal/voices"
	"voicedial-platform/pkg/logger"
	"voicedial-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Campaigns *campaigns.Service
	Leads     *leads.Tracker
	Calls     *calllog.Store
	Stats     *stats.Service
	Voices    *voices.Service
	Provider  telephony.OutboundProvider

	// Rdb backs the per-campaign concurrent-dial cap. Nil disables the cap
	// (tests, local single-process runs).
	Rdb          *redis.Client
	DialCapLimit int
	DialCapTTL   time.Duration
}

const (
	defaultDialCapLimit = 5
	defaultDialCapTTL   = 10 * time.Minute
)

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Campaigns ---

func (h Handlers) CreateCampaign(c *gin.Context) {
	var req campaigns.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, err := h.Campaigns.Create(c.Request.Context(), req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) ListCampaigns(c *gin.Context) {
	list, err := h.Campaigns.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": list})
}

func (h Handlers) GetCampaign(c *gin.Context) {
	id := c.Param("campaign_id")
	cmp, err := h.Campaigns.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateCampaignStatus moves a campaign between draft/active/paused/completed.
// Illegal edges are rejected with 409.
func (h Handlers) UpdateCampaignStatus(c *gin.Context) {
	id := c.Param("campaign_id")
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Campaigns.TransitionStatus(c.Request.Context(), id, campaigns.Status(req.Status)); err != nil {
		writeDomainError(c, err)
		return
	}
	cmp, err := h.Campaigns.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// --- Leads ---

type importLeadsRequest struct {
	Leads []campaigns.NewLead `json:"leads"`
}

func (h Handlers) ImportLeads(c *gin.Context) {
	id := c.Param("campaign_id")
	var req importLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, err := h.Campaigns.ImportLeads(c.Request.Context(), id, req.Leads)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"leads": created, "imported": len(created)})
}

func (h Handlers) ListCampaignLeads(c *gin.Context) {
	id := c.Param("campaign_id")
	if _, err := h.Campaigns.Get(c.Request.Context(), id); err != nil {
		writeDomainError(c, err)
		return
	}
	list, err := h.Leads.ListByCampaign(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": list})
}

// --- Dialing ---

// StartCampaign activates the campaign and dials its pending leads, bounded
// by the per-campaign concurrent-dial cap. Leads left undialed by the cap
// stay pending and are picked up by later dial requests.
func (h Handlers) StartCampaign(c *gin.Context) {
	log := logger.FromGin(c)
	id := c.Param("campaign_id")

	res, err := h.Campaigns.Start(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	dialed := 0
	for _, l := range res.EligibleLeads {
		cl, err := h.dialLead(c, res.Campaign.ID, l)
		if err != nil {
			if errors.Is(err, errDialCapReached) {
				log.Info("dial cap reached", "campaign_id", id, "dialed", dialed)
				break
			}
			log.Error("dial failed", "campaign_id", id, "lead_id", l.ID, "err", err)
			continue
		}
		log.Info("call placed", "campaign_id", id, "lead_id", l.ID, "call_id", cl.ID)
		dialed++
	}

	c.JSON(http.StatusOK, gin.H{
		"campaign":       res.Campaign,
		"eligible_leads": len(res.EligibleLeads),
		"dialed":         dialed,
	})
}

// DialLead places a single outbound call for one lead of the campaign.
func (h Handlers) DialLead(c *gin.Context) {
	campaignID := c.Param("campaign_id")
	leadID := c.Param("lead_id")

	cmp, err := h.Campaigns.Get(c.Request.Context(), campaignID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if cmp.Status != campaigns.StatusActive {
		writeDomainError(c, domain.PreconditionFailedf("campaign %s is %s, not active", campaignID, cmp.Status))
		return
	}

	l, err := h.Leads.Get(c.Request.Context(), leadID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if l.CampaignID != campaignID {
		writeDomainError(c, domain.NotFoundf("lead %s in campaign %s", leadID, campaignID))
		return
	}

	cl, err := h.dialLead(c, campaignID, l)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cl)
}

// dialLead acquires a dial-cap slot, places the call and records the log.
// The slot is released on failure; on success it is held until the terminal
// status callback (or the slot TTL, if the callback is lost).
func (h Handlers) dialLead(c *gin.Context, campaignID string, l leads.Lead) (calllog.CallLog, error) {
	ctx := c.Request.Context()

	release, err := h.acquireDialSlot(ctx, campaignID)
	if err != nil {
		return calllog.CallLog{}, err
	}

	res, err := h.Provider.PlaceCall(ctx, telephony.PlaceCallRequest{
		To:         l.PhoneNumber,
		CampaignID: campaignID,
		LeadID:     l.ID,
	})
	if err != nil {
		release()
		return calllog.CallLog{}, err
	}

	cl, err := h.Calls.RecordCallStarted(ctx, campaignID, l.ID, l.PhoneNumber, res.ProviderCallID)
	if err != nil {
		release()
		return calllog.CallLog{}, err
	}
	return cl, nil
}

// --- Test calls ---

type placeTestCallRequest struct {
	PhoneNumber string `json:"phone_number"`

	// Optional attachments; a campaign-attached test call still counts
	// toward that campaign's totals.
	CampaignID string `json:"campaign_id,omitempty"`
	LeadID     string `json:"lead_id,omitempty"`
}

// PlaceTestCall dials an arbitrary number outside the campaign dial loop.
// Unattached test calls skip the dial cap; campaign-attached ones hold a
// slot like any other call of that campaign, so releases stay balanced.
func (h Handlers) PlaceTestCall(c *gin.Context) {
	var req placeTestCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.PhoneNumber == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone_number required"})
		return
	}

	// Resolve attachments before dialing; a bad reference must not reach
	// the provider.
	if req.CampaignID != "" {
		if _, err := h.Campaigns.Get(c.Request.Context(), req.CampaignID); err != nil {
			writeDomainError(c, err)
			return
		}
	}
	if req.LeadID != "" {
		if _, err := h.Leads.Get(c.Request.Context(), req.LeadID); err != nil {
			writeDomainError(c, err)
			return
		}
	}

	release, err := h.acquireDialSlot(c.Request.Context(), req.CampaignID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	res, err := h.Provider.PlaceCall(c.Request.Context(), telephony.PlaceCallRequest{
		To:         req.PhoneNumber,
		CampaignID: req.CampaignID,
		LeadID:     req.LeadID,
	})
	if err != nil {
		release()
		writeDomainError(c, err)
		return
	}

	cl, err := h.Calls.RecordCallStarted(c.Request.Context(), req.CampaignID, req.LeadID, req.PhoneNumber, res.ProviderCallID)
	if err != nil {
		release()
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cl)
}

// --- Call logs ---

func (h Handlers) GetCall(c *gin.Context) {
	cl, err := h.Calls.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cl)
}

type recordOutcomeRequest struct {
	Status          string `json:"status"`
	DurationSeconds int    `json:"duration_seconds"`
	ConversationID  string `json:"conversation_id,omitempty"`
}

// RecordCallOutcome advances a call log directly, without going through the
// provider webhook. Intended for operator tooling and providerless setups.
func (h Handlers) RecordCallOutcome(c *gin.Context) {
	id := c.Param("call_id")
	var req recordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	cl, err := h.Calls.RecordCallOutcome(c.Request.Context(), id, calllog.Status(req.Status), req.DurationSeconds, req.ConversationID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if cl.Status.Terminal() {
		h.releaseDialSlot(c.Request.Context(), cl.CampaignID)
	}
	c.JSON(http.StatusOK, cl)
}

// ListCampaignCalls returns the campaign's call logs, optionally filtered
// with ?class=campaign_call|test_call. Classification is computed at query time from
// the campaign's lead set; it is never stored.
func (h Handlers) ListCampaignCalls(c *gin.Context) {
	id := c.Param("campaign_id")
	if _, err := h.Campaigns.Get(c.Request.Context(), id); err != nil {
		writeDomainError(c, err)
		return
	}

	logs, err := h.Calls.ListByCampaign(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	class := c.Query("class")
	if class == "" {
		c.JSON(http.StatusOK, gin.H{"calls": logs})
		return
	}
	if class != string(calllog.ClassCampaignCall) && class != string(calllog.ClassTestCall) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "class must be campaign_call or test_call"})
		return
	}

	ls, err := h.Leads.ListByCampaign(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	leadIDs := make(map[string]struct{}, len(ls))
	for _, l := range ls {
		leadIDs[l.ID] = struct{}{}
	}

	filtered := make([]calllog.CallLog, 0, len(logs))
	for _, cl := range logs {
		if string(calllog.Classify(cl, leadIDs)) == class {
			filtered = append(filtered, cl)
		}
	}
	c.JSON(http.StatusOK, gin.H{"calls": filtered})
}

// --- Stats ---

func (h Handlers) GetCampaignStats(c *gin.Context) {
	st, err := h.Stats.CampaignStats(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// --- Voices ---

func (h Handlers) ListVoices(c *gin.Context) {
	list, err := h.Voices.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voices": list})
}

// SyncVoices refreshes the voice catalog from the provider.
func (h Handlers) SyncVoices(c *gin.Context) {
	n, err := h.Voices.Sync(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": n})
}

// --- Dial cap plumbing ---

// errDialCapReached marks dial attempts rejected by the concurrency cap, so
// the campaign dial loop can stop early instead of burning through leads.
var errDialCapReached = errors.New("concurrent dial cap reached")

func dialCapKey(campaignID string) string {
	return "dialcap:campaign:" + campaignID
}

// acquireDialSlot reserves one in-flight-call slot for the campaign.
// Returns a release func for the failure paths; on success the slot is held
// until the terminal outcome releases it (or the TTL expires). No-op when
// redis is not wired or the call is unattached.
func (h Handlers) acquireDialSlot(ctx context.Context, campaignID string) (func(), error) {
	if h.Rdb == nil || campaignID == "" {
		return func() {}, nil
	}

	limit := h.DialCapLimit
	if limit <= 0 {
		limit = defaultDialCapLimit
	}
	ttl := h.DialCapTTL
	if ttl <= 0 {
		ttl = defaultDialCapTTL
	}

	key := dialCapKey(campaignID)
	ok, err := utils.AcquireDialCap(ctx, h.Rdb, key, limit, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: campaign %s: %w", domain.ErrPreconditionFailed, campaignID, errDialCapReached)
	}
	return func() { _ = utils.ReleaseDialCap(ctx, h.Rdb, key) }, nil
}

// releaseDialSlot runs the terminal-outcome bookkeeping for a campaign call:
// free the concurrency slot and drop the campaign's cached stats.
func (h Handlers) releaseDialSlot(ctx context.Context, campaignID string) {
	if campaignID == "" {
		return
	}
	if h.Stats != nil {
		h.Stats.InvalidateCampaign(ctx, campaignID)
	}
	if h.Rdb != nil {
		_ = utils.ReleaseDialCap(ctx, h.Rdb, dialCapKey(campaignID))
	}
}

// ReleaseDialSlotFunc exposes slot release for the status-webhook wiring.
func (h Handlers) ReleaseDialSlotFunc() func(ctx context.Context, campaignID string) {
	return h.releaseDialSlot
}
