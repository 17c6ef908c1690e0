package entity

import (
	"time"
)

// OrderStatus DCA腿状态机
// pending → open → partially_filled → filled，cancelled/failed为终态
// filled的腿触发止盈后仅置tp_hit=true，记录本身保留
type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderOpen            OrderStatus = "open"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderFailed          OrderStatus = "failed"
)

// Settled 腿是否已结清（不再需要对账）
func (s OrderStatus) Settled() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderFailed
}

// DCAOrder 金字塔梯子中的一条限价单（一条腿），腿之间的状态互相独立
type DCAOrder struct {
	ID        int64 `gorm:"column:id;primary_key" json:"id"`
	GroupId   int64 `gorm:"column:group_id;not null;index" json:"group_id"`
	PyramidId int64 `gorm:"column:pyramid_id;not null;index" json:"pyramid_id"`

	LegIndex  int    `gorm:"column:leg_index;not null" json:"leg_index"`
	Symbol    string `gorm:"column:symbol;type:varchar(30);not null" json:"symbol"`
	Side      string `gorm:"column:side;type:varchar(10);not null" json:"side"`    // buy / sell
	OrderType string `gorm:"column:order_type;type:varchar(10)" json:"order_type"` // limit / market

	// 取整前的原始规划值
	RequestedPrice    float64 `gorm:"column:requested_price;type:decimal(20,10)" json:"requested_price"`
	RequestedQuantity float64 `gorm:"column:requested_quantity;type:decimal(20,10)" json:"requested_quantity"`

	// 精度取整后的实际下单值
	Price    float64 `gorm:"column:price;type:decimal(20,10);not null" json:"price"`
	Quantity float64 `gorm:"column:quantity;type:decimal(20,10);not null" json:"quantity"`

	GapPercent    float64 `gorm:"column:gap_percent;type:decimal(10,4)" json:"gap_percent"`
	WeightPercent float64 `gorm:"column:weight_percent;type:decimal(10,4)" json:"weight_percent"`
	TPPercent     float64 `gorm:"column:tp_percent;type:decimal(10,4)" json:"tp_percent"`
	TPPrice       float64 `gorm:"column:tp_price;type:decimal(20,10)" json:"tp_price"`

	Status          OrderStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	FilledQuantity  float64     `gorm:"column:filled_quantity;type:decimal(20,10)" json:"filled_quantity"`
	AvgFillPrice    float64     `gorm:"column:avg_fill_price;type:decimal(20,10)" json:"avg_fill_price"`
	ExchangeOrderId string      `gorm:"column:exchange_order_id;type:varchar(64);index" json:"exchange_order_id"`

	TPHit        bool       `gorm:"column:tp_hit" json:"tp_hit"`
	TPOrderId    string     `gorm:"column:tp_order_id;type:varchar(64)" json:"tp_order_id"`
	TPExecutedAt *time.Time `gorm:"column:tp_executed_at" json:"tp_executed_at"`

	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at"`
	FilledAt    *time.Time `gorm:"column:filled_at" json:"filled_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at"`
}

func (DCAOrder) TableName() string {
	return "dca_orders"
}
