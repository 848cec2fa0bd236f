package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voicedial-platform/internal/config"
)

// TwilioProvider places outbound calls through the Twilio REST API.
//
// The dialed call fetches its voice-agent instructions from VoiceURL (the
// TwiML endpoint bridging to the AI voice session) and reports lifecycle
// events to StatusCallbackURL, which lands on the status webhook handler.

const twilioAPIBase = "https://api.twilio.com"

type TwilioProvider struct {
	accountSID string
	authToken  string
	from       string

	voiceURL          string
	statusCallbackURL string

	baseURL string
	http    *http.Client
}

func NewTwilioProvider(cfg config.TwilioConfig) *TwilioProvider {
	base := cfg.APIBaseURL
	if base == "" {
		base = twilioAPIBase
	}
	return &TwilioProvider{
		accountSID:        cfg.AccountSID,
		authToken:         cfg.AuthToken,
		from:              cfg.FromNumber,
		voiceURL:          cfg.VoiceURL,
		statusCallbackURL: cfg.StatusCallbackURL,
		baseURL:           base,
		http:              &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	if p.accountSID == "" || p.authToken == "" {
		return errors.New("telephony: twilio credentials not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", p.baseURL, p.accountSID), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.accountSID, p.authToken)

	res, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("telephony: twilio health returned %d", res.StatusCode)
	}
	return nil
}

// twilioCallResponse mirrors the subset of the Calls resource we consume.
type twilioCallResponse struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

func (p *TwilioProvider) PlaceCall(ctx context.Context, in PlaceCallRequest) (PlaceCallResult, error) {
	if p.accountSID == "" || p.authToken == "" {
		return PlaceCallResult{}, errors.New("telephony: twilio credentials not configured")
	}
	if in.To == "" {
		return PlaceCallResult{}, errors.New("telephony: destination number is required")
	}

	form := url.Values{}
	form.Set("To", in.To)
	form.Set("From", p.from)
	form.Set("Url", p.voiceURL)
	if p.statusCallbackURL != "" {
		form.Set("StatusCallback", p.statusCallbackURL)
		for _, ev := range []string{"initiated", "ringing", "answered", "completed"} {
			form.Add("StatusCallbackEvent", ev)
		}
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", p.baseURL, p.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return PlaceCallResult{}, err
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := p.http.Do(req)
	if err != nil {
		return PlaceCallResult{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusOK {
		return PlaceCallResult{}, fmt.Errorf("telephony: twilio place call returned %d", res.StatusCode)
	}

	var body twilioCallResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return PlaceCallResult{}, err
	}
	if body.Sid == "" {
		return PlaceCallResult{}, errors.New("telephony: twilio response missing call sid")
	}
	return PlaceCallResult{ProviderCallID: body.Sid}, nil
}
