package takeprofit

import (
	"context"
	"time"

	"gridflow/internal/dao"
	"gridflow/internal/exchange"
	"gridflow/internal/ledger"
	"gridflow/internal/model/entity"
	"gridflow/pkg/logger"

	"go.uber.org/multierr"
)

// Engine 止盈引擎，由后台任务周期性驱动
// per_leg:   每条已成交的腿独立检查自己的止盈价
// aggregate: 只看组级浮盈百分比，达标整组平仓
// hybrid:    腿级止盈照常，组级达标时只平掉配置的比例，且只触发一次
type Engine struct {
	groupDao *dao.GroupDao
	orderDao *dao.OrderDao
	ledger   *ledger.Ledger
	gw       exchange.Gateway
}

func NewEngine(groupDao *dao.GroupDao, orderDao *dao.OrderDao, lg *ledger.Ledger, gw exchange.Gateway) *Engine {
	return &Engine{groupDao: groupDao, orderDao: orderDao, ledger: lg, gw: gw}
}

// EvaluateUser 检查用户全部在场仓位组
func (e *Engine) EvaluateUser(ctx context.Context, userId int64) error {
	groups, err := e.groupDao.ListOpen(ctx, userId)
	if err != nil {
		return err
	}
	var errs error
	for i := range groups {
		if err := e.evaluateGroup(ctx, &groups[i]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (e *Engine) evaluateGroup(ctx context.Context, group *entity.PositionGroup) error {
	if group.TotalFilledQuantity <= 0 || group.Status == entity.GroupClosing {
		return nil
	}
	if err := e.ledger.RefreshPnL(ctx, group); err != nil {
		return err
	}

	last, err := e.gw.GetLastPrice(ctx, group.Symbol)
	if err != nil {
		return err
	}

	switch group.TPMode {
	case entity.TPAggregate:
		return e.checkAggregate(ctx, group)
	case entity.TPHybrid:
		if err := e.checkLegs(ctx, group, last); err != nil {
			return err
		}
		return e.checkHybridPartial(ctx, group)
	default: // per_leg
		return e.checkLegs(ctx, group, last)
	}
}

// tpReached 腿的止盈价是否已触发
func tpReached(side string, last, tpPrice float64) bool {
	if tpPrice <= 0 {
		return false
	}
	if side == "short" {
		return last <= tpPrice
	}
	return last >= tpPrice
}

// checkLegs 腿级止盈：逐腿比对止盈价，触发的腿市价平掉自己的数量
func (e *Engine) checkLegs(ctx context.Context, group *entity.PositionGroup, last float64) error {
	orders, err := e.orderDao.ListByGroup(ctx, group.ID)
	if err != nil {
		return err
	}

	var errs error
	remainingSettled := true
	for i := range orders {
		o := orders[i]
		if o.Status == entity.OrderOpen || o.Status == entity.OrderPartiallyFilled {
			remainingSettled = false
		}
		if o.Status != entity.OrderFilled || o.TPHit {
			continue
		}
		if !tpReached(group.Side, last, o.TPPrice) {
			remainingSettled = false
			continue
		}
		if err := e.closeLeg(ctx, group, &o); err != nil {
			errs = multierr.Append(errs, err)
			remainingSettled = false
		}
	}
	if errs != nil {
		return errs
	}

	// 所有腿都已结清且没有剩余持仓时收掉整个组
	if remainingSettled && group.TotalFilledQuantity <= 1e-12 {
		return e.ledger.CloseGroup(ctx, group.ID, "all legs took profit")
	}
	return nil
}

// closeLeg 市价平掉单条腿的成交数量
func (e *Engine) closeLeg(ctx context.Context, group *entity.PositionGroup, o *entity.DCAOrder) error {
	if group.TotalFilledQuantity <= 0 {
		return nil
	}
	fraction := o.FilledQuantity / group.TotalFilledQuantity
	realized, _, err := e.ledger.ClosePartial(ctx, group.ID, fraction, "leg take profit")
	if err != nil {
		return err
	}

	now := time.Now()
	o.TPHit = true
	o.TPExecutedAt = &now
	if err := e.orderDao.Update(ctx, o); err != nil {
		return err
	}

	// ClosePartial改了组聚合，重新加载本地副本
	fresh, err := e.groupDao.GetByID(ctx, group.ID)
	if err == nil {
		*group = fresh
	}
	logger.Infof("腿级止盈 group=%d leg=%d realized=%v", group.ID, o.LegIndex, realized)
	return nil
}

// checkAggregate 组级止盈：浮盈百分比达标后整组平仓
func (e *Engine) checkAggregate(ctx context.Context, group *entity.PositionGroup) error {
	if group.TPAggregatePercent <= 0 {
		return nil
	}
	if group.UnrealizedPnlPercent < group.TPAggregatePercent {
		return nil
	}
	logger.Infof("组级止盈触发 group=%d pnl=%v%%", group.ID, group.UnrealizedPnlPercent)
	return e.ledger.CloseGroup(ctx, group.ID, "aggregate take profit")
}

// checkHybridPartial hybrid模式的组级部分平仓，整个组生命周期内只触发一次
func (e *Engine) checkHybridPartial(ctx context.Context, group *entity.PositionGroup) error {
	if group.PartialCloseApplied || group.TPAggregatePercent <= 0 || group.TPPartialClosePct <= 0 {
		return nil
	}
	if group.UnrealizedPnlPercent < group.TPAggregatePercent {
		return nil
	}

	realized, _, err := e.ledger.ClosePartial(ctx, group.ID, group.TPPartialClosePct, "hybrid partial take profit")
	if err != nil {
		return err
	}
	if err := e.groupDao.UpdateFields(ctx, group.ID, map[string]interface{}{
		"partial_close_applied": true,
	}); err != nil {
		return err
	}
	logger.Infof("组级部分止盈 group=%d fraction=%v realized=%v", group.ID, group.TPPartialClosePct, realized)
	return nil
}
