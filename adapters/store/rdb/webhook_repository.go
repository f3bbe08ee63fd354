package rdb

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
)

type WebhookRepository struct{ db *gorm.DB }

func NewWebhookRepository(db *gorm.DB) *WebhookRepository { return &WebhookRepository{db: db} }

func webhookToRecord(w *model.Webhook) *WebhookRecord {
	rec := &WebhookRecord{
		ID:        w.ID,
		UserID:    w.UserID,
		URL:       w.URL,
		Secret:    w.Secret,
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if len(w.Events) > 0 {
		if b, err := json.Marshal(w.Events); err == nil {
			rec.Events = string(b)
		}
	}
	return rec
}

func webhookToModel(r *WebhookRecord) *model.Webhook {
	w := &model.Webhook{
		ID:        r.ID,
		UserID:    r.UserID,
		URL:       r.URL,
		Secret:    r.Secret,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Events != "" {
		_ = json.Unmarshal([]byte(r.Events), &w.Events)
	}
	return w
}

func (r *WebhookRepository) Create(ctx context.Context, w *model.Webhook) error {
	rec := webhookToRecord(w)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		w.ID = rec.ID
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *WebhookRepository) Get(ctx context.Context, id string) (*model.Webhook, error) {
	var rec WebhookRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.ErrWebhookNotFound
		}
		return nil, err
	}
	return webhookToModel(&rec), nil
}

func (r *WebhookRepository) ListByUser(ctx context.Context, userID string) ([]*model.Webhook, error) {
	var recs []WebhookRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Webhook, 0, len(recs))
	for i := range recs {
		out = append(out, webhookToModel(&recs[i]))
	}
	return out, nil
}

func (r *WebhookRepository) Update(ctx context.Context, w *model.Webhook) error {
	rec := webhookToRecord(w)
	return r.db.WithContext(ctx).Model(&WebhookRecord{}).Where("id = ?", rec.ID).Updates(rec).Error
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&WebhookRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrWebhookNotFound
	}
	return nil
}

var _ domain.WebhookRepository = (*WebhookRepository)(nil)
