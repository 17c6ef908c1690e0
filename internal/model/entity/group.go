package entity

import (
	"time"

	"gorm.io/datatypes"
)

// GroupStatus 仓位组状态机
// waiting → live → partially_filled → active → closing → closed
// waiting/live 在下单失败时进入 failed
type GroupStatus string

const (
	GroupWaiting         GroupStatus = "waiting"
	GroupLive            GroupStatus = "live"
	GroupPartiallyFilled GroupStatus = "partially_filled"
	GroupActive          GroupStatus = "active"
	GroupClosing         GroupStatus = "closing"
	GroupClosed          GroupStatus = "closed"
	GroupFailed          GroupStatus = "failed"
)

// Terminal 是否为终态。终态的仓位组不再占用池位
func (s GroupStatus) Terminal() bool {
	return s == GroupClosed || s == GroupFailed
}

// Occupying 是否占用池位。closing的仓位组在成交确认前仍有交易所敞口，继续占位
func (s GroupStatus) Occupying() bool {
	return s == GroupLive || s == GroupPartiallyFilled || s == GroupActive || s == GroupClosing
}

// OccupyingStatuses 供dao层查询使用
var OccupyingStatuses = []GroupStatus{GroupLive, GroupPartiallyFilled, GroupActive, GroupClosing}

// TPMode 止盈模式
type TPMode string

const (
	TPPerLeg    TPMode = "per_leg"
	TPAggregate TPMode = "aggregate"
	TPHybrid    TPMode = "hybrid"
)

// PositionGroup 资金分配的基本单位，对应一个 (用户, 交易所, 币对, 周期, 方向)
// 同一 (用户, 交易所, 币对, 周期) 下最多存在一个非终态的仓位组
type PositionGroup struct {
	ID       int64  `gorm:"column:id;primary_key" json:"id"`
	UserId   int64  `gorm:"column:user_id;not null;index:idx_user_status" json:"user_id"`
	Exchange string `gorm:"column:exchange;type:varchar(30);not null" json:"exchange"`
	Symbol   string `gorm:"column:symbol;type:varchar(30);not null;index:idx_symbol_timeframe" json:"symbol"`
	// 周期，如 5m / 1h
	Timeframe string `gorm:"column:timeframe;type:varchar(10);not null;index:idx_symbol_timeframe" json:"timeframe"`
	Side      string `gorm:"column:side;type:varchar(10);not null" json:"side"` // long / short

	Status GroupStatus `gorm:"column:status;type:varchar(20);not null;index:idx_user_status" json:"status"`

	PyramidCount int `gorm:"column:pyramid_count" json:"pyramid_count"`
	MaxPyramids  int `gorm:"column:max_pyramids" json:"max_pyramids"`

	TotalDcaLegs  int `gorm:"column:total_dca_legs" json:"total_dca_legs"`
	FilledDcaLegs int `gorm:"column:filled_dca_legs" json:"filled_dca_legs"`

	BaseEntryPrice      float64 `gorm:"column:base_entry_price;type:decimal(20,10)" json:"base_entry_price"`
	WeightedAvgEntry    float64 `gorm:"column:weighted_avg_entry;type:decimal(20,10)" json:"weighted_avg_entry"`
	TotalInvestedUsd    float64 `gorm:"column:total_invested_usd;type:decimal(20,10)" json:"total_invested_usd"`
	TotalFilledQuantity float64 `gorm:"column:total_filled_quantity;type:decimal(20,10)" json:"total_filled_quantity"`

	UnrealizedPnlUsd     float64 `gorm:"column:unrealized_pnl_usd;type:decimal(20,10)" json:"unrealized_pnl_usd"`
	UnrealizedPnlPercent float64 `gorm:"column:unrealized_pnl_percent;type:decimal(10,4)" json:"unrealized_pnl_percent"`
	RealizedPnlUsd       float64 `gorm:"column:realized_pnl_usd;type:decimal(20,10)" json:"realized_pnl_usd"`

	TPMode              TPMode  `gorm:"column:tp_mode;type:varchar(10);not null" json:"tp_mode"`
	TPAggregatePercent  float64 `gorm:"column:tp_aggregate_percent;type:decimal(10,4)" json:"tp_aggregate_percent"`
	TPPartialClosePct   float64 `gorm:"column:tp_partial_close_pct;type:decimal(10,4)" json:"tp_partial_close_pct"`
	PartialCloseApplied bool    `gorm:"column:partial_close_applied" json:"partial_close_applied"` // hybrid模式已执行过部分平仓

	// 风险引擎计时器
	RiskTimerStart   *time.Time `gorm:"column:risk_timer_start" json:"risk_timer_start"`
	RiskTimerExpires *time.Time `gorm:"column:risk_timer_expires" json:"risk_timer_expires"`
	RiskEligible     bool       `gorm:"column:risk_eligible" json:"risk_eligible"`
	RiskBlocked      bool       `gorm:"column:risk_blocked" json:"risk_blocked"`     // 手动屏蔽，风险引擎跳过
	RiskSkipOnce     bool       `gorm:"column:risk_skip_once" json:"risk_skip_once"` // 跳过下一次评估后自动复位

	// 开仓信号原文，审计用
	EntrySignal datatypes.JSON `gorm:"column:entry_signal;type:json" json:"entry_signal"`

	// 失败的仓位组不会被删除，保留原因供查询
	FailReason string `gorm:"column:fail_reason;type:varchar(255)" json:"fail_reason"`

	CreatedAt time.Time  `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
	ClosedAt  *time.Time `gorm:"column:closed_at" json:"closed_at"`
}

func (PositionGroup) TableName() string {
	return "position_groups"
}

// RemainingQuantity 尚未被止盈平掉的成交数量
func (g *PositionGroup) RemainingQuantity(tpClosedQty float64) float64 {
	remaining := g.TotalFilledQuantity - tpClosedQty
	if remaining < 0 {
		return 0
	}
	return remaining
}
