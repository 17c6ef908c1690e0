package dao

import (
	"context"
	"time"

	"gridflow/internal/model/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupDao struct {
	db *gorm.DB
}

func NewGroupDao(db *gorm.DB) *GroupDao {
	return &GroupDao{db: db}
}

func (d *GroupDao) DB() *gorm.DB {
	return d.db
}

// Transaction 在事务内执行fn
func (d *GroupDao) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.db.WithContext(ctx).Transaction(fn)
}

// 插入仓位组
func (d *GroupDao) Insert(ctx context.Context, g *entity.PositionGroup) error {
	return d.db.WithContext(ctx).Create(g).Error
}

func (d *GroupDao) Update(ctx context.Context, g *entity.PositionGroup) error {
	return d.db.WithContext(ctx).Save(g).Error
}

// 部分字段更新
func (d *GroupDao) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return d.db.WithContext(ctx).Model(&entity.PositionGroup{}).Where("id = ?", id).Updates(fields).Error
}

func (d *GroupDao) GetByID(ctx context.Context, id int64) (g entity.PositionGroup, err error) {
	err = d.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	return
}

// GetByIDForUpdate 加行锁查询，必须在事务内调用
func (d *GroupDao) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (g entity.PositionGroup, err error) {
	err = tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&g).Error
	return
}

// GetOpenGroup 查找某(用户,交易所,币对,周期)下唯一的非终态仓位组，不存在时返回gorm.ErrRecordNotFound
func (d *GroupDao) GetOpenGroup(ctx context.Context, userId int64, exchange, symbol, timeframe string) (g entity.PositionGroup, err error) {
	err = d.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("exchange = ?", exchange).
		Where("symbol = ?", symbol).
		Where("timeframe = ?", timeframe).
		Where("status IN ?", entity.OccupyingStatuses).
		First(&g).Error
	return
}

// CountOpen 统计用户当前占用的池位数量
func (d *GroupDao) CountOpen(ctx context.Context, userId int64) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&entity.PositionGroup{}).
		Where("user_id = ?", userId).
		Where("status IN ?", entity.OccupyingStatuses).
		Count(&count).Error
	return count, err
}

// ListOpen 用户当前全部占位仓位组
func (d *GroupDao) ListOpen(ctx context.Context, userId int64) (groups []entity.PositionGroup, err error) {
	err = d.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("status IN ?", entity.OccupyingStatuses).
		Order("created_at ASC").
		Find(&groups).Error
	return
}

// ListOpenUsers 存在占位仓位组的全部用户，供后台轮询任务遍历
func (d *GroupDao) ListOpenUsers(ctx context.Context) (userIds []int64, err error) {
	err = d.db.WithContext(ctx).Model(&entity.PositionGroup{}).
		Where("status IN ?", entity.OccupyingStatuses).
		Distinct("user_id").
		Pluck("user_id", &userIds).Error
	return
}

// ListOpenSymbols 在场仓位组涉及的全部交易对，供精度缓存刷新
func (d *GroupDao) ListOpenSymbols(ctx context.Context) (symbols []string, err error) {
	err = d.db.WithContext(ctx).Model(&entity.PositionGroup{}).
		Where("status IN ?", entity.OccupyingStatuses).
		Distinct("symbol").
		Pluck("symbol", &symbols).Error
	return
}

// List 分页查询，status为空时不过滤
func (d *GroupDao) List(ctx context.Context, userId int64, status entity.GroupStatus, page, pageSize int) (groups []entity.PositionGroup, total int64, err error) {
	query := d.db.WithContext(ctx).Model(&entity.PositionGroup{}).Where("user_id = ?", userId)
	if status != "" {
		query = query.Where("status = ?", status)
	}
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
		Find(&groups).Error
	return
}
