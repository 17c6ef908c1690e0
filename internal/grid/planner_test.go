package grid

import (
	"math"
	"testing"

	"gridflow/conf"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
)

func testConfig() conf.DCAConfig {
	return conf.DCAConfig{
		Levels:       3,
		PriceGaps:    []float64{0, 0.01, 0.03},
		Weights:      []float64{0.2, 0.3, 0.5},
		TPPercent:    0.015,
		TotalRiskUSD: 1000,
		MaxPyramids:  5,
	}
}

func TestPlanner_Validate(t *testing.T) {
	if err := NewPlanner(testConfig()).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	// 权重之和不等于1
	bad := testConfig()
	bad.Weights = []float64{0.2, 0.3, 0.4}
	if err := NewPlanner(bad).Validate(); !errors.IsCode(err, ecode.ConfigMismatch) {
		t.Errorf("expected ConfigMismatch for bad weights, got %v", err)
	}

	// 层数与gap长度不匹配
	bad = testConfig()
	bad.Levels = 4
	if err := NewPlanner(bad).Validate(); !errors.IsCode(err, ecode.ConfigMismatch) {
		t.Errorf("expected ConfigMismatch for mismatched gaps, got %v", err)
	}

	// gap越界
	bad = testConfig()
	bad.PriceGaps = []float64{0, 0.01, 1.2}
	if err := NewPlanner(bad).Validate(); !errors.IsCode(err, ecode.ConfigMismatch) {
		t.Errorf("expected ConfigMismatch for gap out of range, got %v", err)
	}

	bad = testConfig()
	bad.TotalRiskUSD = 0
	if err := NewPlanner(bad).Validate(); !errors.IsCode(err, ecode.ConfigMismatch) {
		t.Errorf("expected ConfigMismatch for zero risk, got %v", err)
	}
}

func TestPlanner_PlanLadder_Long(t *testing.T) {
	p := NewPlanner(testConfig())

	legs, err := p.PlanLadder(100, "long")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(legs))
	}

	// 第一腿锚在入场价，后续价格向下
	if legs[0].Price != 100 {
		t.Errorf("leg0 price = %v, want 100", legs[0].Price)
	}
	if legs[1].Price != 99 || legs[2].Price != 97 {
		t.Errorf("leg prices = %v / %v, want 99 / 97", legs[1].Price, legs[2].Price)
	}

	// 各腿notional之和等于总预算
	var total float64
	for _, leg := range legs {
		total += leg.Notional
		if math.Abs(leg.Quantity*leg.Price-leg.Notional) > 1e-9 {
			t.Errorf("leg%d qty*price=%v does not match notional %v", leg.LegIndex, leg.Quantity*leg.Price, leg.Notional)
		}
		// 多头止盈在腿价上方
		if leg.TPPrice <= leg.Price {
			t.Errorf("leg%d tp %v not above price %v", leg.LegIndex, leg.TPPrice, leg.Price)
		}
	}
	if math.Abs(total-1000) > 1e-9 {
		t.Errorf("total notional = %v, want 1000", total)
	}
}

func TestPlanner_PlanLadder_Short(t *testing.T) {
	p := NewPlanner(testConfig())

	legs, err := p.PlanLadder(100, "short")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 空头腿价向上偏移，止盈在腿价下方
	if legs[1].Price != 101 || legs[2].Price != 103 {
		t.Errorf("short leg prices = %v / %v, want 101 / 103", legs[1].Price, legs[2].Price)
	}
	for _, leg := range legs {
		if leg.TPPrice >= leg.Price {
			t.Errorf("leg%d tp %v not below price %v", leg.LegIndex, leg.TPPrice, leg.Price)
		}
	}
}

func TestPlanner_PlanLadder_Deterministic(t *testing.T) {
	p := NewPlanner(testConfig())

	a, _ := p.PlanLadder(31250.5, "long")
	b, _ := p.PlanLadder(31250.5, "long")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("ladder not deterministic at leg %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	if _, err := p.PlanLadder(0, "long"); !errors.IsCode(err, ecode.ConfigMismatch) {
		t.Errorf("expected ConfigMismatch for zero entry price, got %v", err)
	}
}
