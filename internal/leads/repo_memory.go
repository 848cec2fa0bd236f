package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"voicedial-platform/internal/domain"
)

// MemoryRepo is an in-memory lead repository for tests and early development.

type MemoryRepo struct {
	mu    sync.Mutex
	leads map[string]Lead
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: map[string]Lead{}}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return Lead{}, domain.NotFoundf("lead %s", id)
	}
	return l, nil
}

func (r *MemoryRepo) CreateBatch(ctx context.Context, batch []Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range batch {
		if _, ok := r.leads[l.ID]; ok {
			return domain.ErrConflictingUpdate
		}
	}
	for _, l := range batch {
		r.leads[l.ID] = l
	}
	return nil
}

func (r *MemoryRepo) ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Lead
	for _, l := range r.leads {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) ListPending(ctx context.Context, campaignID string) ([]Lead, error) {
	all, err := r.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	out := make([]Lead, 0, len(all))
	for _, l := range all {
		if l.Status == StatusPending {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, from, to Status, callDuration *int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return domain.NotFoundf("lead %s", id)
	}
	if l.Status != from {
		return domain.ErrConflictingUpdate
	}
	l.Status = to
	if callDuration != nil {
		d := *callDuration
		l.CallDurationSeconds = &d
	}
	l.UpdatedAt = now
	r.leads[id] = l
	return nil
}
