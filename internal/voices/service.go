package voices

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the voice catalog.

type Repository interface {
	Get(ctx context.Context, id string) (Voice, error)
	List(ctx context.Context) ([]Voice, error)

	// Upsert inserts or refreshes a voice keyed by ProviderVoiceID.
	Upsert(ctx context.Context, v Voice) error
}

// Provider is the voice-provider slice the catalog service needs.
type Provider interface {
	ListVoices(ctx context.Context) ([]Voice, error)
	ConversationAudioURL(conversationID string) string
}

// Service keeps a local copy of the provider voice catalog so campaign setup
// does not depend on provider availability.
type Service struct {
	repo     Repository
	provider Provider
	clock    func() time.Time
}

func NewService(repo Repository, provider Provider) *Service {
	return &Service{repo: repo, provider: provider, clock: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (Voice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Voice, error) {
	return s.repo.List(ctx)
}

// Sync pulls the provider catalog into the local repository. Existing rows
// are refreshed in place; provider-side deletions are kept locally so
// campaigns referencing a retired voice stay resolvable.
func (s *Service) Sync(ctx context.Context) (int, error) {
	fetched, err := s.provider.ListVoices(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock().UTC()
	for i := range fetched {
		if fetched[i].ID == "" {
			fetched[i].ID = uuid.NewString()
		}
		if fetched[i].CreatedAt.IsZero() {
			fetched[i].CreatedAt = now
		}
		if err := s.repo.Upsert(ctx, fetched[i]); err != nil {
			return 0, err
		}
	}
	return len(fetched), nil
}

// ConversationAudioURL exposes the provider audio location for a stored
// conversation id.
func (s *Service) ConversationAudioURL(conversationID string) string {
	return s.provider.ConversationAudioURL(conversationID)
}
