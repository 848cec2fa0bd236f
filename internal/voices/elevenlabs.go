package voices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ElevenLabsClient is the voice-provider adapter.
//
// Rules:
// - No provider calls outside this adapter.
// - The core stores conversation/voice identifiers only, never audio; audio
//   is retrieved from the provider by id when the dashboard asks for it.

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io"

type ElevenLabsClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewElevenLabsClient(apiKey, baseURL string) *ElevenLabsClient {
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	return &ElevenLabsClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *ElevenLabsClient) Name() string { return "elevenlabs" }

// voicesResponse mirrors the subset of GET /v1/voices we consume.
type voicesResponse struct {
	Voices []struct {
		VoiceID    string `json:"voice_id"`
		Name       string `json:"name"`
		Category   string `json:"category"`
		PreviewURL string `json:"preview_url"`
	} `json:"voices"`
}

// ListVoices fetches the provider's voice catalog.
func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]Voice, error) {
	if c.apiKey == "" {
		return nil, errors.New("voices: elevenlabs api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voices: elevenlabs returned %d", res.StatusCode)
	}

	var body voicesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make([]Voice, 0, len(body.Voices))
	for _, v := range body.Voices {
		out = append(out, Voice{
			ProviderVoiceID: v.VoiceID,
			Name:            v.Name,
			Category:        v.Category,
			PreviewURL:      v.PreviewURL,
		})
	}
	return out, nil
}

// ConversationAudioURL builds the provider URL for a recorded conversation.
// The caller streams it with the API key header; no audio passes through
// this service.
func (c *ElevenLabsClient) ConversationAudioURL(conversationID string) string {
	return c.baseURL + "/v1/convai/conversations/" + url.PathEscape(conversationID) + "/audio"
}

func (c *ElevenLabsClient) HealthCheck(ctx context.Context) error {
	_, err := c.ListVoices(ctx)
	return err
}
