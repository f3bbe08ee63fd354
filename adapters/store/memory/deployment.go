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

// InMemoryDeploymentRepository is a thread-safe in-memory implementation.
type InMemoryDeploymentRepository struct {
	mu    sync.RWMutex
	items map[string]*model.Deployment
}

func NewInMemoryDeploymentRepository() *InMemoryDeploymentRepository {
	return &InMemoryDeploymentRepository{items: make(map[string]*model.Deployment)}
}

func (r *InMemoryDeploymentRepository) Create(_ context.Context, d *model.Deployment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *InMemoryDeploymentRepository) Get(_ context.Context, id string) (*model.Deployment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	if !ok {
		return nil, model.ErrDeploymentNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *InMemoryDeploymentRepository) GetByName(_ context.Context, userID, appName string) (*model.Deployment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.items {
		if v.UserID == userID && v.AppName == appName {
			cp := *v
			return &cp, nil
		}
	}
	return nil, model.ErrDeploymentNotFound
}

func (r *InMemoryDeploymentRepository) List(_ context.Context, userID string) ([]*model.Deployment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Deployment, 0, len(r.items))
	for _, v := range r.items {
		if userID != "" && v.UserID != userID {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryDeploymentRepository) Update(_ context.Context, d *model.Deployment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[d.ID]; !ok {
		return model.ErrDeploymentNotFound
	}
	cp := *d
	cp.UpdatedAt = time.Now()
	r.items[d.ID] = &cp
	return nil
}

func (r *InMemoryDeploymentRepository) UpdateStatus(_ context.Context, id string, status model.Status, url, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	if !ok {
		return model.ErrDeploymentNotFound
	}
	v.Status = status
	v.URL = url
	v.ErrorMsg = errorMsg
	v.UpdatedAt = time.Now()
	return nil
}

func (r *InMemoryDeploymentRepository) UpdateReplicas(_ context.Context, id string, replicas int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	if !ok {
		return model.ErrDeploymentNotFound
	}
	v.Replicas = replicas
	v.UpdatedAt = time.Now()
	return nil
}

func (r *InMemoryDeploymentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return model.ErrDeploymentNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.DeploymentRepository = (*InMemoryDeploymentRepository)(nil)
