package voices

import "time"

// Voice is a synthesis voice from the voice provider, held as immutable
// reference data. The core never mutates voices beyond refreshing the
// catalog from the provider.

type Voice struct {
	ID string `json:"id" db:"id"`

	// ProviderVoiceID is the voice provider's identifier (ElevenLabs voice_id).
	ProviderVoiceID string `json:"provider_voice_id" db:"provider_voice_id"`

	Name     string `json:"name" db:"name"`
	Category string `json:"category,omitempty" db:"category"`

	// PreviewURL points at a provider-hosted sample clip.
	PreviewURL string `json:"preview_url,omitempty" db:"preview_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
