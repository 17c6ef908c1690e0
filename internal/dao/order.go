package dao

import (
	"context"
	"time"

	"gridflow/internal/model/entity"

	"gorm.io/gorm"
)

type OrderDao struct {
	db *gorm.DB
}

func NewOrderDao(db *gorm.DB) *OrderDao {
	return &OrderDao{db: db}
}

func (d *OrderDao) Insert(ctx context.Context, o *entity.DCAOrder) error {
	return d.db.WithContext(ctx).Create(o).Error
}

// 批量落库一个梯子的全部腿
func (d *OrderDao) InsertBatch(ctx context.Context, orders []*entity.DCAOrder) error {
	return d.db.WithContext(ctx).Create(&orders).Error
}

func (d *OrderDao) Update(ctx context.Context, o *entity.DCAOrder) error {
	return d.db.WithContext(ctx).Save(o).Error
}

func (d *OrderDao) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return d.db.WithContext(ctx).Model(&entity.DCAOrder{}).Where("id = ?", id).Updates(fields).Error
}

func (d *OrderDao) GetByID(ctx context.Context, id int64) (o entity.DCAOrder, err error) {
	err = d.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	return
}

func (d *OrderDao) GetByExchangeOrderId(ctx context.Context, exchangeOrderId string) (o entity.DCAOrder, err error) {
	err = d.db.WithContext(ctx).Where("exchange_order_id = ?", exchangeOrderId).First(&o).Error
	return
}

// ListByGroup 仓位组下全部腿，按金字塔和腿序号升序
func (d *OrderDao) ListByGroup(ctx context.Context, groupId int64) (orders []entity.DCAOrder, err error) {
	err = d.db.WithContext(ctx).
		Where("group_id = ?", groupId).
		Order("pyramid_id ASC, leg_index ASC").
		Find(&orders).Error
	return
}

func (d *OrderDao) ListByPyramid(ctx context.Context, pyramidId int64) (orders []entity.DCAOrder, err error) {
	err = d.db.WithContext(ctx).
		Where("pyramid_id = ?", pyramidId).
		Order("leg_index ASC").
		Find(&orders).Error
	return
}

// ListUnsettledByUser 对账任务用：该用户仍挂在交易所的腿
func (d *OrderDao) ListUnsettledByUser(ctx context.Context, userId int64) (orders []entity.DCAOrder, err error) {
	groupIds := d.db.Model(&entity.PositionGroup{}).Select("id").Where("user_id = ?", userId)
	err = d.db.WithContext(ctx).
		Where("group_id IN (?)", groupIds).
		Where("status IN ?", []entity.OrderStatus{entity.OrderOpen, entity.OrderPartiallyFilled}).
		Where("exchange_order_id <> ''").
		Find(&orders).Error
	return
}

// MarkFilled 腿完全成交
func (d *OrderDao) MarkFilled(ctx context.Context, id int64, filledQty, avgPrice float64) error {
	now := time.Now()
	return d.db.WithContext(ctx).Model(&entity.DCAOrder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":          entity.OrderFilled,
		"filled_quantity": filledQty,
		"avg_fill_price":  avgPrice,
		"filled_at":       now,
	}).Error
}

// CancelPending 平仓或失败回滚时撤销仍未成交的腿
func (d *OrderDao) CancelPending(ctx context.Context, groupId int64) error {
	now := time.Now()
	return d.db.WithContext(ctx).Model(&entity.DCAOrder{}).
		Where("group_id = ?", groupId).
		Where("status IN ?", []entity.OrderStatus{entity.OrderPending, entity.OrderOpen, entity.OrderPartiallyFilled}).
		Updates(map[string]interface{}{
			"status":       entity.OrderCancelled,
			"cancelled_at": now,
		}).Error
}
