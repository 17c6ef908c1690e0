package entity

import (
	"time"

	"gorm.io/datatypes"
)

// RiskActionType 风控动作类型
type RiskActionType string

const (
	RiskOffsetLoss RiskActionType = "offset_loss" // 部分平掉盈利仓对冲亏损
	RiskSkipped    RiskActionType = "skipped"     // 本轮被skip_once标记跳过
)

// RiskAction 风控引擎执行记录，只追加不修改
type RiskAction struct {
	ID     int64 `gorm:"column:id;primary_key" json:"id"`
	UserId int64 `gorm:"column:user_id;not null;index" json:"user_id"`

	Action       RiskActionType `gorm:"column:action;type:varchar(20);not null" json:"action"`
	LoserGroupId int64          `gorm:"column:loser_group_id;not null;index" json:"loser_group_id"`
	LoserPnlUsd  float64        `gorm:"column:loser_pnl_usd;type:decimal(20,8)" json:"loser_pnl_usd"`

	// 被动用的盈利仓明细 [{group_id, realized_usd, quantity_closed}]
	WinnerDetails datatypes.JSON `gorm:"column:winner_details;type:json" json:"winner_details"`

	RequiredUsd float64 `gorm:"column:required_usd;type:decimal(20,8)" json:"required_usd"`
	CoveredUsd  float64 `gorm:"column:covered_usd;type:decimal(20,8)" json:"covered_usd"`

	Reason    string    `gorm:"column:reason;type:varchar(255)" json:"reason"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (RiskAction) TableName() string {
	return "risk_actions"
}

// WinnerDetail 写入WinnerDetails的单条明细
type WinnerDetail struct {
	GroupId        int64   `json:"group_id"`
	RealizedUsd    float64 `json:"realized_usd"`
	QuantityClosed float64 `json:"quantity_closed"`
}
