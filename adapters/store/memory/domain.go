package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
)

// InMemoryDomainRepository is a thread-safe in-memory implementation.
type InMemoryDomainRepository struct {
	mu    sync.RWMutex
	items map[string]*model.CustomDomain
}

func NewInMemoryDomainRepository() *InMemoryDomainRepository {
	return &InMemoryDomainRepository{items: make(map[string]*model.CustomDomain)}
}

func (r *InMemoryDomainRepository) Create(_ context.Context, d *model.CustomDomain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.items {
		if v.Domain == d.Domain {
			return model.ErrDomainConflict
		}
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *InMemoryDomainRepository) Get(_ context.Context, id string) (*model.CustomDomain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	if !ok {
		return nil, model.ErrDomainNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *InMemoryDomainRepository) GetByDomain(_ context.Context, domainName string) (*model.CustomDomain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.items {
		if v.Domain == domainName {
			cp := *v
			return &cp, nil
		}
	}
	return nil, model.ErrDomainNotFound
}

func (r *InMemoryDomainRepository) ListByDeployment(_ context.Context, deploymentID string) ([]*model.CustomDomain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.CustomDomain, 0)
	for _, v := range r.items {
		if v.DeploymentID == deploymentID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryDomainRepository) Update(_ context.Context, d *model.CustomDomain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[d.ID]; !ok {
		return model.ErrDomainNotFound
	}
	cp := *d
	cp.UpdatedAt = time.Now()
	r.items[d.ID] = &cp
	return nil
}

func (r *InMemoryDomainRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return model.ErrDomainNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.DomainRepository = (*InMemoryDomainRepository)(nil)
