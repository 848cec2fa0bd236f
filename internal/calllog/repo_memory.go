package calllog

import (
	"context"
	"sort"
	"sync"

	"voicedial-platform/internal/domain"
)

// MemoryRepo is an in-memory call-log repository for tests and early
// development.

type MemoryRepo struct {
	mu   sync.Mutex
	logs map[string]CallLog
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{logs: map[string]CallLog{}}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cl, ok := r.logs[id]
	if !ok {
		return CallLog{}, domain.NotFoundf("call log %s", id)
	}
	return cl, nil
}

func (r *MemoryRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cl := range r.logs {
		if cl.ProviderCallID == providerCallID && providerCallID != "" {
			return cl, nil
		}
	}
	return CallLog{}, domain.NotFoundf("call log with provider id %s", providerCallID)
}

func (r *MemoryRepo) Create(ctx context.Context, cl CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[cl.ID]; ok {
		return domain.ErrConflictingUpdate
	}
	r.logs[cl.ID] = cl
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, cl CallLog, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.logs[cl.ID]
	if !ok {
		return domain.NotFoundf("call log %s", cl.ID)
	}
	if cur.Status != from {
		return domain.ErrConflictingUpdate
	}
	r.logs[cl.ID] = cl
	return nil
}

func (r *MemoryRepo) ListByCampaign(ctx context.Context, campaignID string) ([]CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallLog
	for _, cl := range r.logs {
		if cl.CampaignID == campaignID {
			out = append(out, cl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
