package dao

import (
	"context"

	"gridflow/internal/model/entity"

	"gorm.io/gorm"
)

type WebhookLogDao struct {
	db *gorm.DB
}

func NewWebhookLogDao(db *gorm.DB) *WebhookLogDao {
	return &WebhookLogDao{db: db}
}

func (d *WebhookLogDao) Insert(ctx context.Context, l *entity.WebhookLog) error {
	return d.db.WithContext(ctx).Create(l).Error
}

func (d *WebhookLogDao) ListBySignal(ctx context.Context, signalId string) (logs []entity.WebhookLog, err error) {
	err = d.db.WithContext(ctx).
		Where("signal_id = ?", signalId).
		Order("created_at ASC").
		Find(&logs).Error
	return
}
