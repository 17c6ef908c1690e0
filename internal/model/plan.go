package model

// LegPlan 网格规划器输出的一条DCA限价单规格
type LegPlan struct {
	LegIndex      int     // 0..levels-1
	Price         float64 // 挂单价（未经精度取整）
	Quantity      float64 // 挂单数量（未经精度取整）
	Notional      float64 // 本腿投入的资金 = 总资金 * 权重
	GapPercent    float64 // 距离入场价的偏移（小数）
	WeightPercent float64 // 资金权重（小数）
	TPPercent     float64 // 止盈百分比（小数）
	TPPrice       float64 // 本腿的止盈目标价
}

// PrecisionRule 交易所对某个交易对的数值约束，带TTL缓存，不做持久化
type PrecisionRule struct {
	TickSize    float64 `json:"tick_size"`    // 价格最小变动单位
	StepSize    float64 `json:"step_size"`    // 数量最小变动单位
	MinQuantity float64 `json:"min_quantity"` // 最小下单数量
	MinNotional float64 `json:"min_notional"` // 最小名义价值，0表示交易所未提供
}
