package entity

import "testing"

func TestGroupStatus_Occupying(t *testing.T) {
	occupying := []GroupStatus{GroupLive, GroupPartiallyFilled, GroupActive, GroupClosing}
	for _, s := range occupying {
		if !s.Occupying() {
			t.Errorf("%s should occupy a pool slot", s)
		}
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}

	// waiting尚未下单成功，不占位
	if GroupWaiting.Occupying() {
		t.Error("waiting should not occupy a pool slot")
	}
	for _, s := range []GroupStatus{GroupClosed, GroupFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		if s.Occupying() {
			t.Errorf("%s should not occupy a pool slot", s)
		}
	}
}

func TestPositionGroup_RemainingQuantity(t *testing.T) {
	g := &PositionGroup{TotalFilledQuantity: 1.5}
	if got := g.RemainingQuantity(0.5); got != 1.0 {
		t.Errorf("remaining = %v, want 1.0", got)
	}
	// 已平数量超出持仓时返回0
	if got := g.RemainingQuantity(2.0); got != 0 {
		t.Errorf("remaining = %v, want 0", got)
	}
}

func TestOrderStatus_Settled(t *testing.T) {
	for _, s := range []OrderStatus{OrderFilled, OrderCancelled, OrderFailed} {
		if !s.Settled() {
			t.Errorf("%s should be settled", s)
		}
	}
	for _, s := range []OrderStatus{OrderPending, OrderOpen, OrderPartiallyFilled} {
		if s.Settled() {
			t.Errorf("%s should not be settled", s)
		}
	}
}
