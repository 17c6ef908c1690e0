package takeprofit

import (
	"context"
	"testing"

	"gridflow/internal/model/entity"
)

func TestTpReached(t *testing.T) {
	// 多头：最新价触及或越过止盈价
	if !tpReached("long", 105, 105) {
		t.Error("long at tp price should trigger")
	}
	if !tpReached("long", 106, 105) {
		t.Error("long above tp price should trigger")
	}
	if tpReached("long", 104.9, 105) {
		t.Error("long below tp price should not trigger")
	}

	// 空头方向相反
	if !tpReached("short", 95, 95) {
		t.Error("short at tp price should trigger")
	}
	if !tpReached("short", 94, 95) {
		t.Error("short below tp price should trigger")
	}
	if tpReached("short", 95.1, 95) {
		t.Error("short above tp price should not trigger")
	}
}

func TestCheckAggregate_PercentScale(t *testing.T) {
	// 阈值和unrealized_pnl_percent同口径（5.0 = 5%），4.9%的浮盈不触发整组平仓
	e := NewEngine(nil, nil, nil, nil)
	group := &entity.PositionGroup{
		TPAggregatePercent:   5.0,
		UnrealizedPnlPercent: 4.9,
	}
	if err := e.checkAggregate(context.Background(), group); err != nil {
		t.Errorf("below-threshold aggregate check errored: %v", err)
	}

	// 未配置阈值时永不触发
	group.TPAggregatePercent = 0
	group.UnrealizedPnlPercent = 50
	if err := e.checkAggregate(context.Background(), group); err != nil {
		t.Errorf("unconfigured aggregate check errored: %v", err)
	}
}
