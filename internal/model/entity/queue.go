package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/plugin/soft_delete"
)

// QueueStatus 等待队列条目状态
type QueueStatus string

const (
	QueueQueued    QueueStatus = "queued"
	QueuePromoted  QueueStatus = "promoted"
	QueueCancelled QueueStatus = "cancelled"
)

// QueueEntry 在池满时被拒绝入场的信号，按(priority_score, replacement_count, created_at)排序等待晋升
// 同一(user_id, exchange, symbol, timeframe)最多存在一条queued状态的记录，新信号到达时替换payload并递增replacement_count
type QueueEntry struct {
	ID        int64  `gorm:"column:id;primary_key" json:"id"`
	UserId    int64  `gorm:"column:user_id;not null;index" json:"user_id"`
	Exchange  string `gorm:"column:exchange;type:varchar(20);not null" json:"exchange"`
	Symbol    string `gorm:"column:symbol;type:varchar(30);not null" json:"symbol"`
	Timeframe string `gorm:"column:timeframe;type:varchar(10);not null" json:"timeframe"`
	Side      string `gorm:"column:side;type:varchar(10);not null" json:"side"`

	Payload datatypes.JSON `gorm:"column:payload;type:json" json:"payload"` // 最新一次信号的完整载荷

	PriorityScore         float64 `gorm:"column:priority_score;type:decimal(20,6);index" json:"priority_score"`
	ReplacementCount      int     `gorm:"column:replacement_count;default:0" json:"replacement_count"`
	IsPyramidContinuation bool    `gorm:"column:is_pyramid_continuation" json:"is_pyramid_continuation"`
	CurrentLossPercent    float64 `gorm:"column:current_loss_percent;type:decimal(10,4)" json:"current_loss_percent"`

	Status QueueStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`

	CreatedAt  time.Time             `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time             `gorm:"column:updated_at" json:"updated_at"`
	PromotedAt *time.Time            `gorm:"column:promoted_at" json:"promoted_at"`
	DeletedAt  *time.Time            `gorm:"column:deleted_at" json:"deleted_at"`
	IsDel      soft_delete.DeletedAt `gorm:"softDelete:flag,DeletedAtField:DeletedAt" json:"-"`
}

func (QueueEntry) TableName() string {
	return "queued_signals"
}
