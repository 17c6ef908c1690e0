package grid

import (
	"math"

	"gridflow/conf"
	"gridflow/internal/model"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
)

// 权重之和允许的浮点偏差
const weightTolerance = 1e-6

// Planner 网格规划器，把一次入场展开成DCA限价单梯子
// 纯计算，不访问交易所，同样的输入永远产出同样的梯子
type Planner struct {
	cfg conf.DCAConfig
}

func NewPlanner(cfg conf.DCAConfig) *Planner {
	return &Planner{cfg: cfg}
}

// Validate 校验梯子配置自洽
func (p *Planner) Validate() error {
	c := p.cfg
	if c.Levels <= 0 {
		return errors.WithCode(ecode.ConfigMismatch, "dca levels must be positive, got %d", c.Levels)
	}
	if len(c.PriceGaps) != c.Levels {
		return errors.WithCode(ecode.ConfigMismatch,
			"price gaps length %d does not match levels %d", len(c.PriceGaps), c.Levels)
	}
	if len(c.Weights) != c.Levels {
		return errors.WithCode(ecode.ConfigMismatch,
			"weights length %d does not match levels %d", len(c.Weights), c.Levels)
	}
	if c.TotalRiskUSD <= 0 {
		return errors.WithCode(ecode.ConfigMismatch, "total risk must be positive, got %v", c.TotalRiskUSD)
	}
	var sum float64
	for i, w := range c.Weights {
		if w <= 0 {
			return errors.WithCode(ecode.ConfigMismatch, "weight at level %d must be positive, got %v", i, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return errors.WithCode(ecode.ConfigMismatch, "weights must sum to 1.0, got %v", sum)
	}
	for i, gap := range c.PriceGaps {
		if gap < 0 || gap >= 1 {
			return errors.WithCode(ecode.ConfigMismatch, "price gap at level %d out of range [0,1): %v", i, gap)
		}
	}
	if c.TPPercent <= 0 {
		return errors.WithCode(ecode.ConfigMismatch, "tp percent must be positive, got %v", c.TPPercent)
	}
	return nil
}

// PlanLadder 以entryPrice为锚生成全部DCA腿
// side为long时腿价向下偏移、止盈向上；short相反
// 各腿notional之和等于TotalRiskUSD
func (p *Planner) PlanLadder(entryPrice float64, side string) ([]model.LegPlan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if entryPrice <= 0 {
		return nil, errors.WithCode(ecode.ConfigMismatch, "entry price must be positive, got %v", entryPrice)
	}

	legs := make([]model.LegPlan, 0, p.cfg.Levels)
	for i := 0; i < p.cfg.Levels; i++ {
		gap := p.cfg.PriceGaps[i]
		weight := p.cfg.Weights[i]

		var price, tpPrice float64
		if side == "short" {
			price = entryPrice * (1 + gap)
			tpPrice = price * (1 - p.cfg.TPPercent)
		} else {
			price = entryPrice * (1 - gap)
			tpPrice = price * (1 + p.cfg.TPPercent)
		}

		notional := p.cfg.TotalRiskUSD * weight
		legs = append(legs, model.LegPlan{
			LegIndex:      i,
			Price:         price,
			Quantity:      notional / price,
			Notional:      notional,
			GapPercent:    gap,
			WeightPercent: weight,
			TPPercent:     p.cfg.TPPercent,
			TPPrice:       tpPrice,
		})
	}
	return legs, nil
}
