package ledger

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMarginalFillPrice(t *testing.T) {
	// 首次回报没有历史成交，累计均价就是增量成交价
	if got := marginalFillPrice(0, 0, 100, 1); !almostEqual(got, 100) {
		t.Errorf("first fill marginal = %v, want 100", got)
	}

	// 已成交1@100，交易所回报累计2@105：新增的1实际是110成交的
	if got := marginalFillPrice(100, 1, 105, 2); !almostEqual(got, 110) {
		t.Errorf("marginal = %v, want 110", got)
	}

	// 没有新增量时原样返回
	if got := marginalFillPrice(100, 2, 100, 2); !almostEqual(got, 100) {
		t.Errorf("no-delta marginal = %v, want 100", got)
	}
}

func TestMergeFill(t *testing.T) {
	// 100@1 + 105@1 -> 均价102.5，数量2
	avg, qty := mergeFill(0, 0, 100, 1)
	avg, qty = mergeFill(avg, qty, 105, 1)
	if !almostEqual(avg, 102.5) || !almostEqual(qty, 2) {
		t.Errorf("merged = %v @ %v, want 102.5 @ 2", qty, avg)
	}

	mid, midQty := mergeFill(100, 2, 110, 1)
	if !almostEqual(midQty, 3) || !almostEqual(mid, 320.0/3) {
		t.Errorf("merged = %v @ %v, want %v @ 3", midQty, mid, 320.0/3)
	}
}

func TestMarginalThenMerge(t *testing.T) {
	// 同一笔订单分两次对账：先1@100，再回报累计2@105
	// 组聚合应得到均价105（= 订单累计均价），而不是把105摊给增量后的102.5
	avg, qty := mergeFill(0, 0, marginalFillPrice(0, 0, 100, 1), 1)
	marginal := marginalFillPrice(100, 1, 105, 2)
	avg, qty = mergeFill(avg, qty, marginal, 1)
	if !almostEqual(avg, 105) || !almostEqual(qty, 2) {
		t.Errorf("group aggregate = %v @ %v, want 105 @ 2", qty, avg)
	}
}
