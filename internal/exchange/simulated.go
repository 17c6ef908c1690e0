package exchange

import (
	"context"
	"math/rand"
	"sync"

	"gridflow/internal/model"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"

	"github.com/google/uuid"
)

// SimulatedGateway 本地模拟网关，用map存储订单状态，适合本地联调和测试
type SimulatedGateway struct {
	mu     sync.Mutex
	orders map[string]*simOrder
	prices map[string]float64
	rules  map[string]model.PrecisionRule

	placeErr error // 注入下一次PlaceOrder的错误
	placed   int   // placeErr生效前允许成功的次数
}

type simOrder struct {
	req   OrderRequest
	state OrderState
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{
		orders: make(map[string]*simOrder),
		prices: make(map[string]float64),
		rules:  make(map[string]model.PrecisionRule),
	}
}

// 设置初始价格
func (s *SimulatedGateway) SetInitialPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

func (s *SimulatedGateway) SetPrecisionRule(symbol string, rule model.PrecisionRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[symbol] = rule
}

// FailPlaceAfter n次成功下单之后，后续PlaceOrder返回err
func (s *SimulatedGateway) FailPlaceAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed = -n
	s.placeErr = err
}

func (s *SimulatedGateway) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[symbol]
	if !ok {
		price = 10000 + rand.Float64()*2000
		s.prices[symbol] = price
	}

	// 模拟价格波动 ±0.5%
	fluctuation := (rand.Float64()*0.01 - 0.005) * price
	price += fluctuation
	s.prices[symbol] = price

	return price, nil
}

func (s *SimulatedGateway) LoadPrecision(ctx context.Context, symbol string) (model.PrecisionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[symbol]
	if !ok {
		return model.PrecisionRule{}, errors.WithCode(ecode.PrecisionUnavailable, "no precision rule for %s", symbol)
	}
	return rule, nil
}

func (s *SimulatedGateway) PlaceOrder(ctx context.Context, req *OrderRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.placed++
	if s.placeErr != nil && s.placed > 0 {
		return "", s.placeErr
	}

	orderID := uuid.NewString()
	status := StateOpen
	if req.OrderType == "market" {
		// 市价单立即按当前价格成交
		status = StateFilled
	}
	o := &simOrder{
		req: *req,
		state: OrderState{
			OrderID: orderID,
			Status:  status,
		},
	}
	if status == StateFilled {
		price := s.prices[req.Symbol]
		if price == 0 {
			price = req.Price
		}
		o.state.FilledQuantity = req.Quantity
		o.state.AvgFillPrice = price
	}
	s.orders[orderID] = o
	return orderID, nil
}

func (s *SimulatedGateway) CancelOrder(ctx context.Context, orderID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return errors.WithCode(ecode.ExchangeRejected, "order %s not found", orderID)
	}
	if o.state.Status == StateFilled {
		return errors.WithCode(ecode.ExchangeRejected, "order %s already filled", orderID)
	}
	o.state.Status = StateCancelled
	return nil
}

func (s *SimulatedGateway) GetOrderState(ctx context.Context, orderID, symbol string) (*OrderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, errors.WithCode(ecode.ExchangeRejected, "order %s not found", orderID)
	}
	state := o.state
	return &state, nil
}

// FillOrder 测试辅助：将挂单标记为(部分)成交
func (s *SimulatedGateway) FillOrder(orderID string, qty, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return
	}
	o.state.FilledQuantity += qty
	o.state.AvgFillPrice = price
	if o.state.FilledQuantity >= o.req.Quantity {
		o.state.Status = StateFilled
	} else {
		o.state.Status = StatePartiallyFilled
	}
}

// OpenOrders 测试辅助：当前未结订单数
func (s *SimulatedGateway) OpenOrders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.orders {
		if o.state.Status == StateOpen || o.state.Status == StatePartiallyFilled {
			n++
		}
	}
	return n
}
