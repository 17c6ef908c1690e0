package exchange

import (
	"context"
	"testing"

	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
)

func TestSimulatedGateway_GetLastPrice(t *testing.T) {
	gw := NewSimulatedGateway()

	symbol := "BTC/USDT"
	gw.SetInitialPrice(symbol, 30000.0)

	// 连续获取10次价格，确保波动范围合理
	for i := 0; i < 10; i++ {
		price, err := gw.GetLastPrice(context.Background(), symbol)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price <= 0 {
			t.Errorf("invalid price: %.2f", price)
		}
		if price < 29000 || price > 31000 {
			t.Logf("price %.2f outside expected range", price)
		}
	}
}

func TestSimulatedGateway_OrderLifecycle(t *testing.T) {
	gw := NewSimulatedGateway()
	ctx := context.Background()
	gw.SetInitialPrice("BTC/USDT", 30000)

	// 限价单挂出后保持open
	orderID, err := gw.PlaceOrder(ctx, &OrderRequest{
		Symbol: "BTC/USDT", Side: "buy", OrderType: "limit", Price: 29500, Quantity: 0.1,
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	state, err := gw.GetOrderState(ctx, orderID, "BTC/USDT")
	if err != nil {
		t.Fatalf("get order state: %v", err)
	}
	if state.Status != StateOpen {
		t.Errorf("limit order status = %s, want open", state.Status)
	}

	// 部分成交
	gw.FillOrder(orderID, 0.04, 29500)
	state, _ = gw.GetOrderState(ctx, orderID, "BTC/USDT")
	if state.Status != StatePartiallyFilled || state.FilledQuantity != 0.04 {
		t.Errorf("after partial fill: status=%s filled=%v", state.Status, state.FilledQuantity)
	}

	// 全部成交后不可撤
	gw.FillOrder(orderID, 0.06, 29480)
	state, _ = gw.GetOrderState(ctx, orderID, "BTC/USDT")
	if state.Status != StateFilled {
		t.Errorf("after full fill: status=%s, want filled", state.Status)
	}
	if err := gw.CancelOrder(ctx, orderID, "BTC/USDT"); !errors.IsCode(err, ecode.ExchangeRejected) {
		t.Errorf("cancel of filled order: %v, want ExchangeRejected", err)
	}

	// 市价单立即成交
	mktID, err := gw.PlaceOrder(ctx, &OrderRequest{
		Symbol: "BTC/USDT", Side: "sell", OrderType: "market", Quantity: 0.05,
	})
	if err != nil {
		t.Fatalf("place market order: %v", err)
	}
	state, _ = gw.GetOrderState(ctx, mktID, "BTC/USDT")
	if state.Status != StateFilled || state.AvgFillPrice <= 0 {
		t.Errorf("market order: status=%s avg=%v", state.Status, state.AvgFillPrice)
	}
}

func TestSimulatedGateway_FailPlaceAfter(t *testing.T) {
	gw := NewSimulatedGateway()
	ctx := context.Background()
	injected := errors.WithCode(ecode.ExchangeRejected, "insufficient balance")
	gw.FailPlaceAfter(2, injected)

	req := &OrderRequest{Symbol: "BTC/USDT", Side: "buy", OrderType: "limit", Price: 100, Quantity: 1}
	for i := 0; i < 2; i++ {
		if _, err := gw.PlaceOrder(ctx, req); err != nil {
			t.Fatalf("order %d should succeed: %v", i, err)
		}
	}
	if _, err := gw.PlaceOrder(ctx, req); err == nil {
		t.Fatal("third order should have failed")
	}
	if gw.OpenOrders() != 2 {
		t.Errorf("open orders = %d, want 2", gw.OpenOrders())
	}
}
