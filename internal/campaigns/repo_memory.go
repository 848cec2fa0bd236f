package campaigns

import (
	"context"
	"sort"
	"sync"
	"time"

	"voicedial-platform/internal/domain"
)

// MemoryRepo is an in-memory campaign repository for tests and early
// development. The aggregator Service already serializes per campaign;
// the repo mutex only guards map access.

type MemoryRepo struct {
	mu        sync.Mutex
	campaigns map[string]Campaign
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{campaigns: map[string]Campaign{}}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return Campaign{}, domain.NotFoundf("campaign %s", id)
	}
	return c, nil
}

func (r *MemoryRepo) Create(ctx context.Context, c Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[c.ID]; ok {
		return domain.ErrConflictingUpdate
	}
	r.campaigns[c.ID] = c
	return nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return domain.NotFoundf("campaign %s", id)
	}
	if c.Status != from {
		return domain.ErrConflictingUpdate
	}
	c.Status = to
	c.UpdatedAt = now
	r.campaigns[id] = c
	return nil
}

func (r *MemoryRepo) IncrementCounters(ctx context.Context, id string, completed, successful, failed int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return domain.NotFoundf("campaign %s", id)
	}
	c.CompletedCalls += completed
	c.SuccessfulCalls += successful
	c.FailedCalls += failed
	c.UpdatedAt = now
	r.campaigns[id] = c
	return nil
}

func (r *MemoryRepo) IncrementTotalLeads(ctx context.Context, id string, n int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return domain.NotFoundf("campaign %s", id)
	}
	c.TotalLeads += n
	c.UpdatedAt = now
	r.campaigns[id] = c
	return nil
}
