package voices

import (
	"context"
	"sort"
	"sync"

	"voicedial-platform/internal/domain"
)

// MemoryRepo is an in-memory voice catalog for tests and early development.

type MemoryRepo struct {
	mu     sync.Mutex
	voices map[string]Voice // keyed by ProviderVoiceID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{voices: map[string]Voice{}}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Voice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.voices {
		if v.ID == id {
			return v, nil
		}
	}
	return Voice{}, domain.NotFoundf("voice %s", id)
}

func (r *MemoryRepo) List(ctx context.Context) ([]Voice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Voice, 0, len(r.voices))
	for _, v := range r.voices {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, v Voice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.voices[v.ProviderVoiceID]; ok {
		// Keep the stable local id and creation time on refresh.
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	}
	r.voices[v.ProviderVoiceID] = v
	return nil
}
