package rdb

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
)

type CertificateRepository struct{ db *gorm.DB }

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

func certToRecord(c *model.Certificate) *CertificateRecord {
	return &CertificateRecord{
		ID:        c.ID,
		DomainID:  c.DomainID,
		Domain:    c.Domain,
		Issuer:    c.Issuer,
		CertPEM:   c.CertPEM,
		KeyPEM:    c.KeyPEM,
		AutoRenew: c.AutoRenew,
		IssuedAt:  c.IssuedAt,
		ExpiresAt: c.ExpiresAt,
	}
}

func certToModel(r *CertificateRecord) *model.Certificate {
	return &model.Certificate{
		ID:        r.ID,
		DomainID:  r.DomainID,
		Domain:    r.Domain,
		Issuer:    r.Issuer,
		CertPEM:   r.CertPEM,
		KeyPEM:    r.KeyPEM,
		AutoRenew: r.AutoRenew,
		IssuedAt:  r.IssuedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

func (r *CertificateRepository) Create(ctx context.Context, c *model.Certificate) error {
	rec := certToRecord(c)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		c.ID = rec.ID
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *CertificateRepository) GetByDomain(ctx context.Context, domainName string) (*model.Certificate, error) {
	var rec CertificateRecord
	if err := r.db.WithContext(ctx).Order("issued_at DESC").First(&rec, "domain = ?", domainName).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.ErrCertificateNotFound
		}
		return nil, err
	}
	return certToModel(&rec), nil
}

func (r *CertificateRepository) List(ctx context.Context) ([]*model.Certificate, error) {
	var recs []CertificateRecord
	if err := r.db.WithContext(ctx).Order("expires_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Certificate, 0, len(recs))
	for i := range recs {
		out = append(out, certToModel(&recs[i]))
	}
	return out, nil
}

func (r *CertificateRepository) Update(ctx context.Context, c *model.Certificate) error {
	// Column map rather than a struct update so false auto_renew persists.
	return r.db.WithContext(ctx).Model(&CertificateRecord{}).Where("id = ?", c.ID).Updates(map[string]any{
		"issuer":     c.Issuer,
		"cert_pem":   c.CertPEM,
		"key_pem":    c.KeyPEM,
		"auto_renew": c.AutoRenew,
		"issued_at":  c.IssuedAt,
		"expires_at": c.ExpiresAt,
	}).Error
}

func (r *CertificateRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&CertificateRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrCertificateNotFound
	}
	return nil
}

var _ domain.CertificateRepository = (*CertificateRepository)(nil)
