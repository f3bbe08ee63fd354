package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
)

// InMemoryWebhookRepository is a thread-safe in-memory implementation.
type InMemoryWebhookRepository struct {
	mu    sync.RWMutex
	items map[string]*model.Webhook
}

func NewInMemoryWebhookRepository() *InMemoryWebhookRepository {
	return &InMemoryWebhookRepository{items: make(map[string]*model.Webhook)}
}

func (r *InMemoryWebhookRepository) Create(_ context.Context, w *model.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	cp := *w
	cp.Events = append([]string(nil), w.Events...)
	r.items[w.ID] = &cp
	return nil
}

func (r *InMemoryWebhookRepository) Get(_ context.Context, id string) (*model.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	if !ok {
		return nil, model.ErrWebhookNotFound
	}
	cp := *v
	cp.Events = append([]string(nil), v.Events...)
	return &cp, nil
}

func (r *InMemoryWebhookRepository) ListByUser(_ context.Context, userID string) ([]*model.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Webhook, 0)
	for _, v := range r.items {
		if v.UserID != userID {
			continue
		}
		cp := *v
		cp.Events = append([]string(nil), v.Events...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryWebhookRepository) Update(_ context.Context, w *model.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[w.ID]; !ok {
		return model.ErrWebhookNotFound
	}
	cp := *w
	cp.Events = append([]string(nil), w.Events...)
	r.items[w.ID] = &cp
	return nil
}

func (r *InMemoryWebhookRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return model.ErrWebhookNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.WebhookRepository = (*InMemoryWebhookRepository)(nil)
