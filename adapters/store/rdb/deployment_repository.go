package rdb

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
)

type DeploymentRepository struct{ db *gorm.DB }

func NewDeploymentRepository(db *gorm.DB) *DeploymentRepository {
	return &DeploymentRepository{db: db}
}

func deploymentToRecord(d *model.Deployment) *DeploymentRecord {
	rec := &DeploymentRecord{
		ID:           d.ID,
		UserID:       d.UserID,
		AppName:      d.AppName,
		Image:        d.Image,
		Port:         d.Port,
		Replicas:     d.Replicas,
		LastReplicas: d.LastReplicas,
		Status:       string(d.Status),
		URL:          d.URL,
		ErrorMsg:     d.ErrorMsg,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if len(d.EnvVars) > 0 {
		if b, err := json.Marshal(d.EnvVars); err == nil {
			rec.EnvVars = string(b)
		}
	}
	if d.Resources != nil {
		if b, err := json.Marshal(d.Resources); err == nil {
			rec.Resources = string(b)
		}
	}
	if d.HealthCheck != nil {
		if b, err := json.Marshal(d.HealthCheck); err == nil {
			rec.HealthCheck = string(b)
		}
	}
	return rec
}

func deploymentToModel(r *DeploymentRecord) *model.Deployment {
	d := &model.Deployment{
		ID:           r.ID,
		UserID:       r.UserID,
		AppName:      r.AppName,
		Image:        r.Image,
		Port:         r.Port,
		Replicas:     r.Replicas,
		LastReplicas: r.LastReplicas,
		Status:       model.Status(r.Status),
		URL:          r.URL,
		ErrorMsg:     r.ErrorMsg,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.EnvVars != "" {
		_ = json.Unmarshal([]byte(r.EnvVars), &d.EnvVars)
	}
	if r.Resources != "" {
		_ = json.Unmarshal([]byte(r.Resources), &d.Resources)
	}
	if r.HealthCheck != "" {
		_ = json.Unmarshal([]byte(r.HealthCheck), &d.HealthCheck)
	}
	return d
}

func (r *DeploymentRepository) Create(ctx context.Context, d *model.Deployment) error {
	rec := deploymentToRecord(d)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		d.ID = rec.ID
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *DeploymentRepository) Get(ctx context.Context, id string) (*model.Deployment, error) {
	var rec DeploymentRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.ErrDeploymentNotFound
		}
		return nil, err
	}
	return deploymentToModel(&rec), nil
}

func (r *DeploymentRepository) GetByName(ctx context.Context, userID, appName string) (*model.Deployment, error) {
	var rec DeploymentRecord
	if err := r.db.WithContext(ctx).First(&rec, "user_id = ? AND app_name = ?", userID, appName).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.ErrDeploymentNotFound
		}
		return nil, err
	}
	return deploymentToModel(&rec), nil
}

func (r *DeploymentRepository) List(ctx context.Context, userID string) ([]*model.Deployment, error) {
	var recs []DeploymentRecord
	q := r.db.WithContext(ctx).Order("created_at ASC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Deployment, 0, len(recs))
	for i := range recs {
		out = append(out, deploymentToModel(&recs[i]))
	}
	return out, nil
}

func (r *DeploymentRepository) Update(ctx context.Context, d *model.Deployment) error {
	rec := deploymentToRecord(d)
	// Map form so zero values (replicas 0, cleared error message) are written.
	return r.db.WithContext(ctx).Model(&DeploymentRecord{}).Where("id = ?", rec.ID).Updates(map[string]any{
		"image":         rec.Image,
		"port":          rec.Port,
		"env_vars":      rec.EnvVars,
		"replicas":      rec.Replicas,
		"last_replicas": rec.LastReplicas,
		"resources":     rec.Resources,
		"health_check":  rec.HealthCheck,
		"status":        rec.Status,
		"url":           rec.URL,
		"error_msg":     rec.ErrorMsg,
	}).Error
}

func (r *DeploymentRepository) UpdateStatus(ctx context.Context, id string, status model.Status, url, errorMsg string) error {
	return r.db.WithContext(ctx).Model(&DeploymentRecord{}).Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "url": url, "error_msg": errorMsg}).Error
}

func (r *DeploymentRepository) UpdateReplicas(ctx context.Context, id string, replicas int32) error {
	return r.db.WithContext(ctx).Model(&DeploymentRecord{}).Where("id = ?", id).
		Update("replicas", replicas).Error
}

func (r *DeploymentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&DeploymentRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrDeploymentNotFound
	}
	return nil
}

var _ domain.DeploymentRepository = (*DeploymentRepository)(nil)
