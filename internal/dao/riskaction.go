package dao

import (
	"context"

	"gridflow/internal/model/entity"

	"gorm.io/gorm"
)

type RiskActionDao struct {
	db *gorm.DB
}

func NewRiskActionDao(db *gorm.DB) *RiskActionDao {
	return &RiskActionDao{db: db}
}

// 只追加，不提供更新和删除
func (d *RiskActionDao) Insert(ctx context.Context, a *entity.RiskAction) error {
	return d.db.WithContext(ctx).Create(a).Error
}

func (d *RiskActionDao) List(ctx context.Context, userId int64, page, pageSize int) (actions []entity.RiskAction, total int64, err error) {
	query := d.db.WithContext(ctx).Model(&entity.RiskAction{}).Where("user_id = ?", userId)
	if err = query.Count(&total).Error; err != nil {
		return
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	err = query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&actions).Error
	return
}
