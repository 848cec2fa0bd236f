package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voicedial-platform/internal/audit"
	"voicedial-platform/internal/calllog"
	"voicedial-platform/internal/campaigns"
	"voicedial-platform/internal/leads"
	"voicedial-platform/internal/stats"
	"voicedial-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

type fakeProvider struct {
	calls int
	fail  bool
}

func (p *fakeProvider) Name() string                          { return "fake" }
func (p *fakeProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *fakeProvider) PlaceCall(ctx context.Context, req telephony.PlaceCallRequest) (telephony.PlaceCallResult, error) {
	if p.fail {
		return telephony.PlaceCallResult{}, fmt.Errorf("provider down")
	}
	p.calls++
	return telephony.PlaceCallResult{ProviderCallID: fmt.Sprintf("CA%04d", p.calls)}, nil
}

func newTestRouter(provider telephony.OutboundProvider) (*gin.Engine, Handlers) {
	gin.SetMode(gin.TestMode)

	auditSvc := audit.NewService(audit.NewMemoryRepo())
	leadRepo := leads.NewMemoryRepo()
	tracker := leads.NewTracker(leadRepo, auditSvc)
	campSvc := campaigns.NewService(campaigns.NewMemoryRepo(), leadRepo, auditSvc)
	callStore := calllog.NewStore(calllog.NewMemoryRepo(), campSvc, tracker, tracker, campSvc, auditSvc)
	statsSvc := stats.NewService(campSvc, tracker, callStore, nil, time.UTC)

	h := Handlers{
		Campaigns: campSvc,
		Leads:     tracker,
		Calls:     callStore,
		Stats:     statsSvc,
		Provider:  provider,
	}

	r := gin.New()
	r.POST("/campaigns", h.CreateCampaign)
	r.GET("/campaigns/:campaign_id", h.GetCampaign)
	r.POST("/campaigns/:campaign_id/status", h.UpdateCampaignStatus)
	r.POST("/campaigns/:campaign_id/leads", h.ImportLeads)
	r.POST("/campaigns/:campaign_id/start", h.StartCampaign)
	r.GET("/campaigns/:campaign_id/calls", h.ListCampaignCalls)
	r.GET("/campaigns/:campaign_id/stats", h.GetCampaignStats)
	r.POST("/calls/test", h.PlaceTestCall)
	r.POST("/calls/:call_id/outcome", h.RecordCallOutcome)
	return r, h
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func createStartedCampaign(t *testing.T, r *gin.Engine, leadCount int) campaigns.Campaign {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/campaigns", campaigns.CreateRequest{Name: "c", Prompt: "p", VoiceID: "v1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	c := decode[campaigns.Campaign](t, w)

	batch := importLeadsRequest{}
	for i := 0; i < leadCount; i++ {
		batch.Leads = append(batch.Leads, campaigns.NewLead{PhoneNumber: fmt.Sprintf("+1555010%d", i)})
	}
	if w := doJSON(t, r, http.MethodPost, "/campaigns/"+c.ID+"/leads", batch); w.Code != http.StatusCreated {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, r, http.MethodPost, "/campaigns/"+c.ID+"/start", nil); w.Code != http.StatusOK {
		t.Fatalf("start: %d %s", w.Code, w.Body.String())
	}
	return c
}

func TestGetCampaignNotFound(t *testing.T) {
	r, _ := newTestRouter(&fakeProvider{})
	w := doJSON(t, r, http.MethodGet, "/campaigns/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStartCampaignDialsEligibleLeads(t *testing.T) {
	p := &fakeProvider{}
	r, h := newTestRouter(p)
	c := createStartedCampaign(t, r, 3)

	if p.calls != 3 {
		t.Fatalf("expected 3 provider calls, got %d", p.calls)
	}
	logs, err := h.Calls.ListByCampaign(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 call logs, got %d", len(logs))
	}
	for _, cl := range logs {
		if cl.Status != calllog.StatusInitiated || cl.ProviderCallID == "" {
			t.Fatalf("unexpected log: %+v", cl)
		}
	}
}

func TestStartCampaignPreconditionMaps412(t *testing.T) {
	r, _ := newTestRouter(&fakeProvider{})
	w := doJSON(t, r, http.MethodPost, "/campaigns", campaigns.CreateRequest{Name: "c", Prompt: "p", VoiceID: "v1"})
	c := decode[campaigns.Campaign](t, w)

	// No leads imported.
	if w := doJSON(t, r, http.MethodPost, "/campaigns/"+c.ID+"/start", nil); w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d %s", w.Code, w.Body.String())
	}
}

func TestUpdateStatusInvalidTransitionMaps409(t *testing.T) {
	r, _ := newTestRouter(&fakeProvider{})
	w := doJSON(t, r, http.MethodPost, "/campaigns", campaigns.CreateRequest{Name: "c", Prompt: "p"})
	c := decode[campaigns.Campaign](t, w)

	if w := doJSON(t, r, http.MethodPost, "/campaigns/"+c.ID+"/status", updateStatusRequest{Status: "paused"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", w.Code, w.Body.String())
	}
}

func TestOutcomeFlowAndDuplicateMaps409(t *testing.T) {
	r, h := newTestRouter(&fakeProvider{})
	c := createStartedCampaign(t, r, 1)

	logs, _ := h.Calls.ListByCampaign(context.Background(), c.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	id := logs[0].ID

	w := doJSON(t, r, http.MethodPost, "/calls/"+id+"/outcome", recordOutcomeRequest{Status: "completed", DurationSeconds: 30})
	if w.Code != http.StatusOK {
		t.Fatalf("outcome: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/calls/"+id+"/outcome", recordOutcomeRequest{Status: "failed"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate terminal outcome, got %d", w.Code)
	}
}

func TestPlaceTestCallAndClassFilter(t *testing.T) {
	r, _ := newTestRouter(&fakeProvider{})
	c := createStartedCampaign(t, r, 1)

	// Campaign-attached test call, no lead reference.
	w := doJSON(t, r, http.MethodPost, "/calls/test", placeTestCallRequest{PhoneNumber: "+15559999", CampaignID: c.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("test call: %d %s", w.Code, w.Body.String())
	}

	type callsResp struct {
		Calls []calllog.CallLog `json:"calls"`
	}

	all := decode[callsResp](t, doJSON(t, r, http.MethodGet, "/campaigns/"+c.ID+"/calls", nil))
	if len(all.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(all.Calls))
	}
	tests := decode[callsResp](t, doJSON(t, r, http.MethodGet, "/campaigns/"+c.ID+"/calls?class=test_call", nil))
	if len(tests.Calls) != 1 || tests.Calls[0].LeadID != "" {
		t.Fatalf("expected 1 test call, got %+v", tests.Calls)
	}
	campaign := decode[callsResp](t, doJSON(t, r, http.MethodGet, "/campaigns/"+c.ID+"/calls?class=campaign_call", nil))
	if len(campaign.Calls) != 1 || campaign.Calls[0].LeadID == "" {
		t.Fatalf("expected 1 campaign call, got %+v", campaign.Calls)
	}
}

func TestStatsEndpoint(t *testing.T) {
	r, h := newTestRouter(&fakeProvider{})
	c := createStartedCampaign(t, r, 2)

	logs, _ := h.Calls.ListByCampaign(context.Background(), c.ID)
	doJSON(t, r, http.MethodPost, "/calls/"+logs[0].ID+"/outcome", recordOutcomeRequest{Status: "completed", DurationSeconds: 40})
	doJSON(t, r, http.MethodPost, "/calls/"+logs[1].ID+"/outcome", recordOutcomeRequest{Status: "failed", DurationSeconds: 0})

	w := doJSON(t, r, http.MethodGet, "/campaigns/"+c.ID+"/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d %s", w.Code, w.Body.String())
	}
	st := decode[stats.CampaignStats](t, w)
	if st.TotalLeads != 2 || st.CompletedCalls != 2 || st.FailedCalls != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.SuccessRatePercent != 50 {
		t.Fatalf("expected 50%% success rate, got %v", st.SuccessRatePercent)
	}
	if st.CallsToday != 2 {
		t.Fatalf("expected 2 calls today, got %d", st.CallsToday)
	}
}
