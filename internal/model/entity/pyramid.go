package entity

import (
	"time"

	"gorm.io/datatypes"
)

// PyramidStatus 金字塔层状态机：pending → submitted → filled
// cancelled / failed 为备用终态
type PyramidStatus string

const (
	PyramidPending   PyramidStatus = "pending"
	PyramidSubmitted PyramidStatus = "submitted"
	PyramidFilled    PyramidStatus = "filled"
	PyramidCancelled PyramidStatus = "cancelled"
	PyramidFailed    PyramidStatus = "failed"
)

// Pyramid 仓位组内的一个入场层（index 0..max-1），拥有自己的DCA挂单梯子
// 关闭金字塔会级联释放其所有DCA腿
type Pyramid struct {
	ID      int64 `gorm:"column:id;primary_key" json:"id"`
	GroupId int64 `gorm:"column:group_id;not null;index" json:"group_id"`

	PyramidIndex int `gorm:"column:pyramid_index;not null" json:"pyramid_index"`

	EntryPrice     float64   `gorm:"column:entry_price;type:decimal(20,10);not null" json:"entry_price"`
	EntryTimestamp time.Time `gorm:"column:entry_timestamp;not null" json:"entry_timestamp"`
	SignalId       string    `gorm:"column:signal_id;type:varchar(64)" json:"signal_id"`

	Status PyramidStatus `gorm:"column:status;type:varchar(15);not null" json:"status"`

	// 生成本层梯子时使用的DCA配置快照
	DcaConfig datatypes.JSON `gorm:"column:dca_config;type:json" json:"dca_config"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Pyramid) TableName() string {
	return "pyramids"
}
