package exchange

import (
	"context"
	stderrors "errors"
	"net"

	"gridflow/internal/model"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
)

// 订单在交易所侧的状态
const (
	StateOpen            = "open"
	StatePartiallyFilled = "partially_filled"
	StateFilled          = "filled"
	StateCancelled       = "cancelled"
)

type OrderRequest struct {
	Symbol    string  // BTC/USDT
	Side      string  // buy / sell
	OrderType string  // limit / market
	Price     float64 // limit价格，market时忽略
	Quantity  float64
}

type OrderState struct {
	OrderID        string
	Status         string
	FilledQuantity float64
	AvgFillPrice   float64
}

// Gateway 交易所网关
type Gateway interface {
	// 获取最新价格
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
	// 拉取交易对的精度规则
	LoadPrecision(ctx context.Context, symbol string) (model.PrecisionRule, error)
	// 下单，返回交易所订单id
	PlaceOrder(ctx context.Context, req *OrderRequest) (string, error)
	// 撤销订单
	CancelOrder(ctx context.Context, orderID, symbol string) error
	// 查询订单状态
	GetOrderState(ctx context.Context, orderID, symbol string) (*OrderState, error)
}

// classify 将底层错误归类为可重试/被拒绝
// 网络错误和超时可重试，其余视为交易所拒绝
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, ecode.ExchangeTransient, msg)
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return errors.Wrap(err, ecode.ExchangeTransient, msg)
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.Wrap(err, ecode.ExchangeTransient, msg)
	}
	return errors.Wrap(err, ecode.ExchangeRejected, msg)
}

// IsTransient 调用方据此决定是否走 utils.Retry
func IsTransient(err error) bool {
	return errors.IsCode(err, ecode.ExchangeTransient)
}
