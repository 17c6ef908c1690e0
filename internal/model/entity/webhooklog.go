package entity

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookLog 外部告警回调的原始记录，用于排查信号丢失与重放
type WebhookLog struct {
	ID       int64  `gorm:"column:id;primary_key" json:"id"`
	UserId   int64  `gorm:"column:user_id;index" json:"user_id"`
	SignalId string `gorm:"column:signal_id;type:varchar(64);index" json:"signal_id"`

	RemoteIp string         `gorm:"column:remote_ip;type:varchar(45)" json:"remote_ip"`
	Body     datatypes.JSON `gorm:"column:body;type:json" json:"body"`

	Kind    string `gorm:"column:kind;type:varchar(20)" json:"kind"`       // new_entry / pyramid / exit / unknown
	Outcome string `gorm:"column:outcome;type:varchar(20)" json:"outcome"` // executed / queued / rejected / failed
	Detail  string `gorm:"column:detail;type:varchar(255)" json:"detail"`
	CostMs  int64  `gorm:"column:cost_ms" json:"cost_ms"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}
