package rdb

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
)

type DomainRepository struct{ db *gorm.DB }

func NewDomainRepository(db *gorm.DB) *DomainRepository { return &DomainRepository{db: db} }

func domainToRecord(d *model.CustomDomain) *DomainRecord {
	return &DomainRecord{
		ID:           d.ID,
		DeploymentID: d.DeploymentID,
		UserID:       d.UserID,
		Domain:       d.Domain,
		Status:       string(d.Status),
		SSLEnabled:   d.SSLEnabled,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func domainToModel(r *DomainRecord) *model.CustomDomain {
	return &model.CustomDomain{
		ID:           r.ID,
		DeploymentID: r.DeploymentID,
		UserID:       r.UserID,
		Domain:       r.Domain,
		Status:       model.DomainStatus(r.Status),
		SSLEnabled:   r.SSLEnabled,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r *DomainRepository) Create(ctx context.Context, d *model.CustomDomain) error {
	rec := domainToRecord(d)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		d.ID = rec.ID
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *DomainRepository) Get(ctx context.Context, id string) (*model.CustomDomain, error) {
	var rec DomainRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.ErrDomainNotFound
		}
		return nil, err
	}
	return domainToModel(&rec), nil
}

func (r *DomainRepository) GetByDomain(ctx context.Context, domainName string) (*model.CustomDomain, error) {
	var rec DomainRecord
	if err := r.db.WithContext(ctx).First(&rec, "domain = ?", domainName).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.ErrDomainNotFound
		}
		return nil, err
	}
	return domainToModel(&rec), nil
}

func (r *DomainRepository) ListByDeployment(ctx context.Context, deploymentID string) ([]*model.CustomDomain, error) {
	var recs []DomainRecord
	if err := r.db.WithContext(ctx).Where("deployment_id = ?", deploymentID).Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.CustomDomain, 0, len(recs))
	for i := range recs {
		out = append(out, domainToModel(&recs[i]))
	}
	return out, nil
}

func (r *DomainRepository) Update(ctx context.Context, d *model.CustomDomain) error {
	rec := domainToRecord(d)
	return r.db.WithContext(ctx).Model(&DomainRecord{}).Where("id = ?", rec.ID).Updates(map[string]any{
		"status":      rec.Status,
		"ssl_enabled": rec.SSLEnabled,
		"updated_at":  rec.UpdatedAt,
	}).Error
}

func (r *DomainRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&DomainRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrDomainNotFound
	}
	return nil
}

var _ domain.DomainRepository = (*DomainRepository)(nil)
