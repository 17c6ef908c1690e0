package precision

import (
	"context"
	"testing"
	"time"

	"gridflow/internal/exchange"
	"gridflow/internal/model"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
)

func newTestGate(t *testing.T) (*Gate, *exchange.SimulatedGateway) {
	t.Helper()
	gw := exchange.NewSimulatedGateway()
	gw.SetPrecisionRule("BTC/USDT", model.PrecisionRule{
		TickSize:    0.1,
		StepSize:    0.001,
		MinQuantity: 0.001,
		MinNotional: 10,
	})
	gate, err := NewGate(gw, nil, 16, time.Minute)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	return gate, gw
}

func TestGate_ValidateAndRound(t *testing.T) {
	gate, _ := newTestGate(t)
	ctx := context.Background()

	price, qty, err := gate.ValidateAndRound(ctx, "BTC/USDT", 31250.57, 0.0123456)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 价格四舍五入到0.1，数量向下到0.001
	if price != 31250.6 {
		t.Errorf("price = %v, want 31250.6", price)
	}
	if qty != 0.012 {
		t.Errorf("qty = %v, want 0.012", qty)
	}

	// 取整是幂等的
	price2, qty2, err := gate.ValidateAndRound(ctx, "BTC/USDT", price, qty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price2 != price || qty2 != qty {
		t.Errorf("rounding not idempotent: (%v,%v) -> (%v,%v)", price, qty, price2, qty2)
	}
}

func TestGate_ValidateAndRound_Minimums(t *testing.T) {
	gate, _ := newTestGate(t)
	ctx := context.Background()

	// 数量低于minQty
	if _, _, err := gate.ValidateAndRound(ctx, "BTC/USDT", 31250, 0.0004); !errors.IsCode(err, ecode.BelowMinNotional) {
		t.Errorf("expected BelowMinNotional for tiny qty, got %v", err)
	}

	// 名义价值低于minNotional
	if _, _, err := gate.ValidateAndRound(ctx, "BTC/USDT", 100, 0.002); !errors.IsCode(err, ecode.BelowMinNotional) {
		t.Errorf("expected BelowMinNotional for tiny notional, got %v", err)
	}
}

func TestGate_GetRule_Caches(t *testing.T) {
	gate, gw := newTestGate(t)
	ctx := context.Background()

	rule, err := gate.GetRule(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.TickSize != 0.1 {
		t.Errorf("tick = %v, want 0.1", rule.TickSize)
	}

	// 网关侧规则被清空后仍应命中本地缓存
	gw.SetPrecisionRule("BTC/USDT", model.PrecisionRule{})
	rule, err = gate.GetRule(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("cache miss after first load: %v", err)
	}
	if rule.TickSize != 0.1 {
		t.Errorf("cached tick = %v, want 0.1", rule.TickSize)
	}

	// 未知交易对直接回源并拿到PrecisionUnavailable
	if _, err = gate.GetRule(ctx, "DOGE/USDT"); !errors.IsCode(err, ecode.PrecisionUnavailable) {
		t.Errorf("expected PrecisionUnavailable, got %v", err)
	}
}

func TestRound_Snap(t *testing.T) {
	rule := model.PrecisionRule{TickSize: 0.5, StepSize: 0.01}

	if got := RoundPrice(rule, 100.26); got != 100.5 {
		t.Errorf("RoundPrice(100.26) = %v, want 100.5", got)
	}
	if got := RoundPrice(rule, 100.24); got != 100 {
		t.Errorf("RoundPrice(100.24) = %v, want 100", got)
	}
	if got := RoundQuantity(rule, 1.239); got != 1.23 {
		t.Errorf("RoundQuantity(1.239) = %v, want 1.23", got)
	}
	// 步长为0时原样返回
	if got := RoundQuantity(model.PrecisionRule{}, 1.2345); got != 1.2345 {
		t.Errorf("RoundQuantity with zero step = %v, want 1.2345", got)
	}
}
