package dao

import (
	"context"
	"time"

	"gridflow/internal/model/entity"

	"gorm.io/gorm"
)

type QueueDao struct {
	db *gorm.DB
}

func NewQueueDao(db *gorm.DB) *QueueDao {
	return &QueueDao{db: db}
}

func (d *QueueDao) Insert(ctx context.Context, e *entity.QueueEntry) error {
	return d.db.WithContext(ctx).Create(e).Error
}

func (d *QueueDao) Update(ctx context.Context, e *entity.QueueEntry) error {
	return d.db.WithContext(ctx).Save(e).Error
}

func (d *QueueDao) GetByID(ctx context.Context, id int64) (e entity.QueueEntry, err error) {
	err = d.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	return
}

// GetQueued 查找同(用户,交易所,币对,周期)的queued条目，用于替换去重
func (d *QueueDao) GetQueued(ctx context.Context, userId int64, exchange, symbol, timeframe string) (e entity.QueueEntry, err error) {
	err = d.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("exchange = ?", exchange).
		Where("symbol = ?", symbol).
		Where("timeframe = ?", timeframe).
		Where("status = ?", entity.QueueQueued).
		First(&e).Error
	return
}

// ListQueued 用户全部排队条目，按晋升顺序返回
// 排序：亏损组续仓优先 > priority_score降序 > replacement_count降序 > created_at升序（先到先得）
func (d *QueueDao) ListQueued(ctx context.Context, userId int64) (entries []entity.QueueEntry, err error) {
	err = d.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("status = ?", entity.QueueQueued).
		Order("is_pyramid_continuation DESC, priority_score DESC, replacement_count DESC, created_at ASC").
		Find(&entries).Error
	return
}

// MarkPromoted 晋升成功后出队
func (d *QueueDao) MarkPromoted(ctx context.Context, id int64) error {
	now := time.Now()
	return d.db.WithContext(ctx).Model(&entity.QueueEntry{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      entity.QueuePromoted,
		"promoted_at": now,
	}).Error
}

// Cancel 软删除，保留排队历史
func (d *QueueDao) Cancel(ctx context.Context, id int64) error {
	err := d.db.WithContext(ctx).Model(&entity.QueueEntry{}).Where("id = ?", id).
		Update("status", entity.QueueCancelled).Error
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.QueueEntry{}).Error
}
