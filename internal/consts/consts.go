package consts

import "time"

const (
	// RequestId 请求id名称
	RequestId   = "request_id"
	UserID      = "user_id"
	JWTTokenCtx = "token_ctx"

	DateLayout   = "2006-01-02"
	TimeLayout   = "2006-01-02 15:04:05"
	TimeLayoutMs = "2006-01-02 15:04:05.000"
)

const (
	// 精度规则缓存key前缀，完整key: precision:rule:{exchange}:{symbol}
	PrecisionRuleKeyPrefix = "precision:rule:"

	// 默认redis过期时间
	RedisExrDefault = time.Hour
)

// 执行事件类型，写入kafka事件流
const (
	EventGroupOpened = "group_opened"
	EventGroupClosed = "group_closed"
	EventOrderFilled = "order_filled"
	EventRiskAction  = "risk_action"
)
