package risk

import (
	"strings"
	"testing"
	"time"

	"gridflow/conf"
	"gridflow/internal/model/entity"

	"github.com/goccy/go-json"
)

func testEngine(requireFull bool) *Engine {
	return NewEngine(conf.RiskConfig{
		LossThresholdPercent: -5.0,
		RequireFullPyramids:  requireFull,
		PostFullWaitMinutes:  30,
		MaxWinnersToCombine:  3,
	}, nil, nil, nil, nil)
}

// lossGroup 默认满仓且等待期已过
func lossGroup(pct float64) *entity.PositionGroup {
	expired := time.Now().Add(-time.Minute)
	return &entity.PositionGroup{
		Status:               entity.GroupActive,
		UnrealizedPnlPercent: pct,
		PyramidCount:         5,
		MaxPyramids:          5,
		RiskTimerExpires:     &expired,
	}
}

func TestEngine_Eligible(t *testing.T) {
	e := testEngine(false)
	now := time.Now()

	if !e.eligible(lossGroup(-6), now) {
		t.Error("loss past threshold should be eligible")
	}
	if e.eligible(lossGroup(-3), now) {
		t.Error("loss above threshold should not be eligible")
	}
	// 阈值上的组（刚好-5%）视为触发
	if !e.eligible(lossGroup(-5), now) {
		t.Error("loss exactly at threshold should be eligible")
	}

	blocked := lossGroup(-8)
	blocked.RiskBlocked = true
	if e.eligible(blocked, now) {
		t.Error("blocked group should never be eligible")
	}
}

func TestEngine_Eligible_WaitAppliesWithoutFullPyramids(t *testing.T) {
	// 等待期检查不依赖满仓要求：不要求满仓时计时器未到期同样不触发
	e := testEngine(false)
	now := time.Now()

	pending := lossGroup(-8)
	pending.PyramidCount = 2
	expires := now.Add(29 * time.Minute)
	pending.RiskTimerExpires = &expires
	if e.eligible(pending, now) {
		t.Error("timer not expired, should not be eligible even without full-pyramid requirement")
	}

	ready := lossGroup(-8)
	ready.PyramidCount = 2
	if !e.eligible(ready, now) {
		t.Error("expired timer with partial pyramids should be eligible when full pyramids not required")
	}

	// 没有计时器视为等待期未开始
	unset := lossGroup(-8)
	unset.RiskTimerExpires = nil
	if e.eligible(unset, now) {
		t.Error("nil timer should not be eligible while a wait period is configured")
	}
}

func TestEngine_Eligible_RequireFullPyramids(t *testing.T) {
	e := testEngine(true)
	now := time.Now()

	// 未满仓不触发
	partial := lossGroup(-8)
	partial.PyramidCount = 3
	if e.eligible(partial, now) {
		t.Error("partial pyramid should not be eligible")
	}

	// 满仓但计时器未到期
	pending := lossGroup(-8)
	expires := now.Add(10 * time.Minute)
	pending.RiskTimerExpires = &expires
	if e.eligible(pending, now) {
		t.Error("timer not expired, should not be eligible")
	}

	// 满仓且等待期已过
	if !e.eligible(lossGroup(-8), now) {
		t.Error("full pyramid with expired timer should be eligible")
	}
}

func TestSortLosers(t *testing.T) {
	a := lossGroup(-10)
	b := lossGroup(-12)
	c := lossGroup(-8)
	losers := []*entity.PositionGroup{a, b, c}
	sortLosers(losers)
	if losers[0] != b || losers[1] != a || losers[2] != c {
		t.Errorf("losers sorted wrong: got %v, %v, %v",
			losers[0].UnrealizedPnlPercent, losers[1].UnrealizedPnlPercent, losers[2].UnrealizedPnlPercent)
	}

	// 同亏损百分比时比美元亏损，再比开仓时间
	d := lossGroup(-10)
	d.UnrealizedPnlUsd = -200
	a.UnrealizedPnlUsd = -100
	losers = []*entity.PositionGroup{a, d}
	sortLosers(losers)
	if losers[0] != d {
		t.Error("deeper usd loss should rank first on percent tie")
	}
}

func winGroup(usd float64) *entity.PositionGroup {
	return &entity.PositionGroup{
		Status:           entity.GroupActive,
		UnrealizedPnlUsd: usd,
	}
}

func TestSelectWinners(t *testing.T) {
	winners := []*entity.PositionGroup{winGroup(500), winGroup(300), winGroup(700), winGroup(200)}
	got := selectWinners(winners, 3)
	if len(got) != 3 {
		t.Fatalf("want 3 winners, got %d", len(got))
	}
	want := []float64{700, 500, 300}
	for i, w := range got {
		if w.UnrealizedPnlUsd != want[i] {
			t.Errorf("winner[%d] = %v, want %v", i, w.UnrealizedPnlUsd, want[i])
		}
	}
}

func TestPlanMitigation_ExactCoverage(t *testing.T) {
	// 300美元的亏损刚好被100+200的浮盈覆盖，两个盈利仓都全额动用
	winners := []*entity.PositionGroup{winGroup(200), winGroup(100)}
	winners = selectWinners(winners, 3)
	plan := planMitigation(300, winners)
	if len(plan) != 2 {
		t.Fatalf("want 2 allocations, got %d", len(plan))
	}
	total := 0.0
	for _, a := range plan {
		if a.fraction != 1 {
			t.Errorf("fraction = %v, want 1", a.fraction)
		}
		total += a.toRealize
	}
	if total != 300 {
		t.Errorf("total realized = %v, want exactly 300", total)
	}
}

func TestPlanMitigation_PartialCoverage(t *testing.T) {
	// 盈利耗尽时只覆盖一部分，不会超卖
	plan := planMitigation(500, []*entity.PositionGroup{winGroup(120)})
	if len(plan) != 1 {
		t.Fatalf("want 1 allocation, got %d", len(plan))
	}
	if plan[0].toRealize != 120 || plan[0].fraction != 1 {
		t.Errorf("allocation = %+v, want full use of the single winner", plan[0])
	}
}

func TestPlanMitigation_StopsWhenCovered(t *testing.T) {
	// 第一个盈利仓就够覆盖时按比例部分平仓，后面的不动
	plan := planMitigation(300, []*entity.PositionGroup{winGroup(500), winGroup(400)})
	if len(plan) != 1 {
		t.Fatalf("want 1 allocation, got %d", len(plan))
	}
	if plan[0].fraction != 0.6 || plan[0].toRealize != 300 {
		t.Errorf("allocation = %+v, want fraction 0.6 toRealize 300", plan[0])
	}
}

func TestWinnerDetailRecordsQuantity(t *testing.T) {
	raw, err := json.Marshal([]entity.WinnerDetail{{GroupId: 7, RealizedUsd: 120, QuantityClosed: 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"quantity_closed":0.5`) {
		t.Errorf("winner detail missing closed quantity: %s", raw)
	}
}
