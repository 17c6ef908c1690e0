package ecode

// 业务错误码定义。0表示成功，非0表示各类失败
const (
	Success = 0

	// 通用
	Unknown     = 10001
	ValidateErr = 10002
	NotFoundErr = 10003
	InternalErr = 10004

	// 鉴权
	RequireAuthErr = 10401

	// 信号接入
	MalformedSignal = 20001 // 信号缺少tv或execution_intent
	Unauthorized    = 20002 // webhook secret不匹配

	// 执行协调
	PoolFull             = 21001 // 池已满，信号进入等待队列（不算失败）
	PyramidLimitExceeded = 21002 // 金字塔数量达到上限
	ConfigMismatch       = 21003 // DCA配置数组长度不一致等配置错误

	// 精度校验
	PrecisionUnavailable = 22001 // 精度规则暂不可得（瞬时），应排队重试
	BelowMinNotional     = 22002 // 四舍五入后低于最小名义价值（永久）

	// 交易所
	ExchangeTransient = 23001 // 超时/限频，可退避重试
	ExchangeRejected  = 23002 // 交易所拒单，永久失败
)
