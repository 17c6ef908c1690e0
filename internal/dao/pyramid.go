package dao

import (
	"context"

	"gridflow/internal/model/entity"

	"gorm.io/gorm"
)

type PyramidDao struct {
	db *gorm.DB
}

func NewPyramidDao(db *gorm.DB) *PyramidDao {
	return &PyramidDao{db: db}
}

func (d *PyramidDao) Insert(ctx context.Context, p *entity.Pyramid) error {
	return d.db.WithContext(ctx).Create(p).Error
}

func (d *PyramidDao) Update(ctx context.Context, p *entity.Pyramid) error {
	return d.db.WithContext(ctx).Save(p).Error
}

func (d *PyramidDao) GetByID(ctx context.Context, id int64) (p entity.Pyramid, err error) {
	err = d.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return
}

// ListByGroup 仓位组下的全部金字塔，按序号升序
func (d *PyramidDao) ListByGroup(ctx context.Context, groupId int64) (ps []entity.Pyramid, err error) {
	err = d.db.WithContext(ctx).
		Where("group_id = ?", groupId).
		Order("pyramid_index ASC").
		Find(&ps).Error
	return
}

func (d *PyramidDao) CountByGroup(ctx context.Context, groupId int64) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&entity.Pyramid{}).
		Where("group_id = ?", groupId).
		Where("status <> ?", entity.PyramidFailed).
		Count(&count).Error
	return count, err
}
