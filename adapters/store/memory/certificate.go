package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
)

// InMemoryCertificateRepository is a thread-safe in-memory implementation.
type InMemoryCertificateRepository struct {
	mu    sync.RWMutex
	items map[string]*model.Certificate
}

func NewInMemoryCertificateRepository() *InMemoryCertificateRepository {
	return &InMemoryCertificateRepository{items: make(map[string]*model.Certificate)}
}

func (r *InMemoryCertificateRepository) Create(_ context.Context, c *model.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *InMemoryCertificateRepository) GetByDomain(_ context.Context, domainName string) (*model.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *model.Certificate
	for _, v := range r.items {
		if v.Domain != domainName {
			continue
		}
		if latest == nil || v.IssuedAt.After(latest.IssuedAt) {
			latest = v
		}
	}
	if latest == nil {
		return nil, model.ErrCertificateNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *InMemoryCertificateRepository) List(_ context.Context) ([]*model.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Certificate, 0, len(r.items))
	for _, v := range r.items {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (r *InMemoryCertificateRepository) Update(_ context.Context, c *model.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return model.ErrCertificateNotFound
	}
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *InMemoryCertificateRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return model.ErrCertificateNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.CertificateRepository = (*InMemoryCertificateRepository)(nil)
