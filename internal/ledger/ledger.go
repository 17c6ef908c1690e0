package ledger

import (
	"context"
	"fmt"
	"time"

	"gridflow/conf"
	"gridflow/internal/consts"
	"gridflow/internal/dao"
	"gridflow/internal/exchange"
	"gridflow/internal/grid"
	"gridflow/internal/model"
	"gridflow/internal/model/entity"
	"gridflow/internal/precision"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/kafka"
	"gridflow/pkg/logger"
	"gridflow/pkg/utils"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
	"gorm.io/datatypes"
)

// Ledger 仓位账本，维护 仓位组 -> 金字塔 -> DCA腿 的状态机
// 所有写路径都假定调用方已持有该用户的keylock
type Ledger struct {
	groupDao   *dao.GroupDao
	pyramidDao *dao.PyramidDao
	orderDao   *dao.OrderDao

	gate     *precision.Gate
	planner  *grid.Planner
	gw       exchange.Gateway
	producer kafka.ProducerService

	dcaCfg  conf.DCAConfig
	tpCfg   conf.TakeProfitConfig
	riskCfg conf.RiskConfig
}

func New(
	groupDao *dao.GroupDao,
	pyramidDao *dao.PyramidDao,
	orderDao *dao.OrderDao,
	gate *precision.Gate,
	planner *grid.Planner,
	gw exchange.Gateway,
	producer kafka.ProducerService,
	dcaCfg conf.DCAConfig,
	tpCfg conf.TakeProfitConfig,
	riskCfg conf.RiskConfig,
) *Ledger {
	return &Ledger{
		groupDao:   groupDao,
		pyramidDao: pyramidDao,
		orderDao:   orderDao,
		gate:       gate,
		planner:    planner,
		gw:         gw,
		producer:   producer,
		dcaCfg:     dcaCfg,
		tpCfg:      tpCfg,
		riskCfg:    riskCfg,
	}
}

func entrySide(side string) string {
	if side == "short" {
		return "sell"
	}
	return "buy"
}

func exitSide(side string) string {
	if side == "short" {
		return "buy"
	}
	return "sell"
}

// CreateGroup 开新仓位组并提交第一座金字塔的DCA梯子
// 任何一条腿提交失败都会撤掉同批已挂的腿，组落库为failed
func (l *Ledger) CreateGroup(ctx context.Context, userId int64, sig *model.Signal) (*entity.PositionGroup, error) {
	entryPrice := sig.TV.EntryPrice()
	symbol := utils.FormatSymbol(sig.TV.Symbol)
	if entryPrice <= 0 {
		price, err := l.gw.GetLastPrice(ctx, symbol)
		if err != nil {
			return nil, err
		}
		entryPrice = price
	}

	// 审计快照里不保存secret
	clean := *sig
	clean.Secret = ""
	raw, _ := json.Marshal(&clean)
	now := time.Now()
	group := &entity.PositionGroup{
		ID:                 utils.NextID(),
		UserId:             userId,
		Exchange:           sig.TV.Exchange,
		Symbol:             symbol,
		Timeframe:          sig.Timeframe(),
		Side:               sig.Side(),
		Status:             entity.GroupWaiting,
		MaxPyramids:        l.dcaCfg.MaxPyramids,
		BaseEntryPrice:     entryPrice,
		TPMode:             entity.TPMode(l.tpCfg.Mode),
		TPAggregatePercent: l.tpCfg.AggregatePercent,
		TPPartialClosePct:  l.tpCfg.PartialClosePercent,
		EntrySignal:        datatypes.JSON(raw),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if group.TPMode == "" {
		group.TPMode = entity.TPPerLeg
	}
	if err := l.groupDao.Insert(ctx, group); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "insert position group failed")
	}

	if _, err := l.addPyramid(ctx, group, entryPrice, sig); err != nil {
		reason := err.Error()
		if len(reason) > 250 {
			reason = reason[:250]
		}
		_ = l.groupDao.UpdateFields(ctx, group.ID, map[string]interface{}{
			"status":      entity.GroupFailed,
			"fail_reason": reason,
		})
		return nil, err
	}

	group.Status = entity.GroupLive
	group.PyramidCount = 1
	l.armRiskTimer(group)
	if err := l.groupDao.Update(ctx, group); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "update position group failed")
	}

	l.publish(ctx, group, consts.EventGroupOpened, map[string]interface{}{
		"entry_price": entryPrice,
		"side":        group.Side,
	})
	logger.Infof("仓位组开仓 group=%d user=%d symbol=%s entry=%v", group.ID, userId, symbol, entryPrice)
	return group, nil
}

// AddPyramid 在已有仓位组上加一座金字塔
func (l *Ledger) AddPyramid(ctx context.Context, groupId int64, sig *model.Signal) (*entity.Pyramid, error) {
	group, err := l.groupDao.GetByID(ctx, groupId)
	if err != nil {
		return nil, errors.Wrap(err, ecode.NotFoundErr, "position group not found")
	}
	if group.Status.Terminal() || group.Status == entity.GroupClosing {
		return nil, errors.WithCode(ecode.NotFoundErr, "position group %d is not open", groupId)
	}
	if group.PyramidCount >= group.MaxPyramids {
		return nil, errors.WithCode(ecode.PyramidLimitExceeded,
			"pyramid limit %d reached for group %d", group.MaxPyramids, groupId)
	}

	entryPrice := sig.TV.EntryPrice()
	if entryPrice <= 0 {
		price, err := l.gw.GetLastPrice(ctx, group.Symbol)
		if err != nil {
			return nil, err
		}
		entryPrice = price
	}

	pyramid, err := l.addPyramid(ctx, &group, entryPrice, sig)
	if err != nil {
		return nil, err
	}

	group.PyramidCount++
	group.UpdatedAt = time.Now()
	l.armRiskTimer(&group)
	if err := l.groupDao.Update(ctx, &group); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "update position group failed")
	}
	logger.Infof("金字塔加仓 group=%d pyramid=%d entry=%v", group.ID, pyramid.PyramidIndex, entryPrice)
	return pyramid, nil
}

// addPyramid 规划梯子、逐腿提交。失败时回滚同批已挂的腿
func (l *Ledger) addPyramid(ctx context.Context, group *entity.PositionGroup, entryPrice float64, sig *model.Signal) (*entity.Pyramid, error) {
	legs, err := l.planner.PlanLadder(entryPrice, group.Side)
	if err != nil {
		return nil, err
	}

	cfgRaw, _ := json.Marshal(l.dcaCfg)
	now := time.Now()
	pyramid := &entity.Pyramid{
		ID:             utils.NextID(),
		GroupId:        group.ID,
		PyramidIndex:   group.PyramidCount,
		EntryPrice:     entryPrice,
		EntryTimestamp: now,
		SignalId:       sig.ID,
		Status:         entity.PyramidPending,
		DcaConfig:      datatypes.JSON(cfgRaw),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := l.pyramidDao.Insert(ctx, pyramid); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "insert pyramid failed")
	}

	placed, err := l.submitLadder(ctx, group, pyramid, legs)
	if err != nil {
		pyramid.Status = entity.PyramidFailed
		pyramid.UpdatedAt = time.Now()
		_ = l.pyramidDao.Update(ctx, pyramid)
		return nil, err
	}

	pyramid.Status = entity.PyramidSubmitted
	pyramid.UpdatedAt = time.Now()
	if err := l.pyramidDao.Update(ctx, pyramid); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "update pyramid failed")
	}

	group.TotalDcaLegs += placed
	return pyramid, nil
}

// submitLadder 返回成功挂出的腿数
func (l *Ledger) submitLadder(ctx context.Context, group *entity.PositionGroup, pyramid *entity.Pyramid, legs []model.LegPlan) (int, error) {
	side := entrySide(group.Side)
	var placed []*entity.DCAOrder

	rollback := func(cause error) error {
		var errs error
		for _, o := range placed {
			if err := l.gw.CancelOrder(ctx, o.ExchangeOrderId, group.Symbol); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("cancel %s: %w", o.ExchangeOrderId, err))
			}
			now := time.Now()
			o.Status = entity.OrderCancelled
			o.CancelledAt = &now
			_ = l.orderDao.Update(ctx, o)
		}
		if errs != nil {
			logger.Errorf("梯子回滚未完全成功 group=%d err=%v", group.ID, errs)
		}
		return cause
	}

	skipped := 0
	for _, leg := range legs {
		price, qty, err := l.gate.ValidateAndRound(ctx, group.Symbol, leg.Price, leg.Quantity)
		if err != nil {
			if errors.IsCode(err, ecode.BelowMinNotional) {
				// 权重太小的腿直接跳过，不算失败
				logger.Warnf("跳过低于最小下单量的腿 group=%d leg=%d err=%v", group.ID, leg.LegIndex, err)
				skipped++
				continue
			}
			return 0, rollback(err)
		}

		rule, _ := l.gate.GetRule(ctx, group.Symbol)
		order := &entity.DCAOrder{
			ID:                utils.NextID(),
			GroupId:           group.ID,
			PyramidId:         pyramid.ID,
			LegIndex:          leg.LegIndex,
			Symbol:            group.Symbol,
			Side:              side,
			OrderType:         "limit",
			RequestedPrice:    leg.Price,
			RequestedQuantity: leg.Quantity,
			Price:             price,
			Quantity:          qty,
			GapPercent:        leg.GapPercent,
			WeightPercent:     leg.WeightPercent,
			TPPercent:         leg.TPPercent,
			TPPrice:           precision.RoundPrice(rule, leg.TPPrice),
			Status:            entity.OrderPending,
			CreatedAt:         time.Now(),
		}
		if err := l.orderDao.Insert(ctx, order); err != nil {
			return 0, rollback(errors.Wrap(err, ecode.InternalErr, "insert dca order failed"))
		}

		var orderID string
		err = utils.Retry(3, 500*time.Millisecond, true, func() error {
			var placeErr error
			orderID, placeErr = l.gw.PlaceOrder(ctx, &exchange.OrderRequest{
				Symbol:    group.Symbol,
				Side:      side,
				OrderType: "limit",
				Price:     price,
				Quantity:  qty,
			})
			if placeErr != nil && !exchange.IsTransient(placeErr) {
				// 交易所明确拒绝的不重试
				return nil
			}
			return placeErr
		})
		if err == nil && orderID == "" {
			err = errors.WithCode(ecode.ExchangeRejected, "order rejected by exchange")
		}
		if err != nil {
			now := time.Now()
			order.Status = entity.OrderFailed
			order.CancelledAt = &now
			_ = l.orderDao.Update(ctx, order)
			return 0, rollback(err)
		}

		now := time.Now()
		order.Status = entity.OrderOpen
		order.ExchangeOrderId = orderID
		order.SubmittedAt = &now
		if err := l.orderDao.Update(ctx, order); err != nil {
			return 0, rollback(errors.Wrap(err, ecode.InternalErr, "update dca order failed"))
		}
		placed = append(placed, order)
	}

	if len(placed) == 0 {
		if skipped > 0 {
			return 0, rollback(errors.WithCode(ecode.BelowMinNotional, "all ladder legs below exchange minimum"))
		}
		return 0, rollback(errors.WithCode(ecode.InternalErr, "empty ladder"))
	}
	return len(placed), nil
}

// armRiskTimer 加仓落地后重置风控等待计时器，从最近一座金字塔的入场时间起算
func (l *Ledger) armRiskTimer(group *entity.PositionGroup) {
	if l.riskCfg.PostFullWaitMinutes <= 0 {
		return
	}
	now := time.Now()
	expires := now.Add(time.Duration(l.riskCfg.PostFullWaitMinutes) * time.Minute)
	group.RiskTimerStart = &now
	group.RiskTimerExpires = &expires
}

// marginalFillPrice 从交易所回报的累计均价还原本次增量的实际成交价
// 回报的avgPrice覆盖整笔订单，直接乘增量会把历史成交摊进新增量
func marginalFillPrice(prevAvg, prevFilled, avgPrice, filledQty float64) float64 {
	delta := filledQty - prevFilled
	if delta <= 0 || prevFilled <= 0 {
		return avgPrice
	}
	return (avgPrice*filledQty - prevAvg*prevFilled) / delta
}

// mergeFill 把一次增量成交并入加权均价
// 加权均价 = Σ(成交价*数量) / Σ数量
func mergeFill(avgEntry, totalQty, price, delta float64) (float64, float64) {
	newQty := totalQty + delta
	if newQty <= 0 {
		return avgEntry, newQty
	}
	return (avgEntry*totalQty + price*delta) / newQty, newQty
}

// ApplyFill 把一次成交写入账本并重算组聚合
func (l *Ledger) ApplyFill(ctx context.Context, order *entity.DCAOrder, filledQty, avgPrice float64) error {
	if filledQty <= order.FilledQuantity {
		return nil // 没有新成交
	}

	prevFilled := order.FilledQuantity
	marginal := marginalFillPrice(order.AvgFillPrice, prevFilled, avgPrice, filledQty)
	order.FilledQuantity = filledQty
	order.AvgFillPrice = avgPrice
	if filledQty >= order.Quantity {
		now := time.Now()
		order.Status = entity.OrderFilled
		order.FilledAt = &now
	} else {
		order.Status = entity.OrderPartiallyFilled
	}
	if err := l.orderDao.Update(ctx, order); err != nil {
		return errors.Wrap(err, ecode.InternalErr, "update dca order failed")
	}

	group, err := l.groupDao.GetByID(ctx, order.GroupId)
	if err != nil {
		return errors.Wrap(err, ecode.InternalErr, "load position group failed")
	}

	delta := filledQty - prevFilled
	group.WeightedAvgEntry, group.TotalFilledQuantity = mergeFill(group.WeightedAvgEntry, group.TotalFilledQuantity, marginal, delta)
	group.TotalInvestedUsd += marginal * delta
	if order.Status == entity.OrderFilled {
		group.FilledDcaLegs++
	}

	switch {
	case group.FilledDcaLegs >= group.TotalDcaLegs && group.TotalDcaLegs > 0:
		group.Status = entity.GroupActive
	case group.TotalFilledQuantity > 0 && group.Status == entity.GroupLive:
		group.Status = entity.GroupPartiallyFilled
	}
	group.UpdatedAt = time.Now()
	if err := l.groupDao.Update(ctx, &group); err != nil {
		return errors.Wrap(err, ecode.InternalErr, "update position group failed")
	}

	l.publish(ctx, &group, consts.EventOrderFilled, map[string]interface{}{
		"order_id":   order.ID,
		"leg_index":  order.LegIndex,
		"filled_qty": filledQty,
		"avg_price":  avgPrice,
	})
	return nil
}

// SyncFills 对账任务：拉取该用户未结腿的交易所状态并回放成交
// 调用方需持有该用户的keylock
func (l *Ledger) SyncFills(ctx context.Context, userId int64) error {
	orders, err := l.orderDao.ListUnsettledByUser(ctx, userId)
	if err != nil {
		return errors.Wrap(err, ecode.InternalErr, "list unsettled orders failed")
	}
	var errs error
	for i := range orders {
		order := orders[i]
		state, err := l.gw.GetOrderState(ctx, order.ExchangeOrderId, order.Symbol)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		switch state.Status {
		case exchange.StateCancelled:
			now := time.Now()
			order.Status = entity.OrderCancelled
			order.CancelledAt = &now
			if err := l.orderDao.Update(ctx, &order); err != nil {
				errs = multierr.Append(errs, err)
			}
		case exchange.StateFilled, exchange.StatePartiallyFilled:
			if err := l.ApplyFill(ctx, &order, state.FilledQuantity, state.AvgFillPrice); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	return errs
}

// RefreshPnL 用最新价格重算组的未实现盈亏
func (l *Ledger) RefreshPnL(ctx context.Context, group *entity.PositionGroup) error {
	if group.TotalFilledQuantity <= 0 {
		return nil
	}
	last, err := l.gw.GetLastPrice(ctx, group.Symbol)
	if err != nil {
		return err
	}

	diff := last - group.WeightedAvgEntry
	if group.Side == "short" {
		diff = -diff
	}
	group.UnrealizedPnlUsd = diff * group.TotalFilledQuantity
	if group.TotalInvestedUsd > 0 {
		group.UnrealizedPnlPercent = group.UnrealizedPnlUsd / group.TotalInvestedUsd * 100
	}
	group.UpdatedAt = time.Now()
	return l.groupDao.UpdateFields(ctx, group.ID, map[string]interface{}{
		"unrealized_pnl_usd":     group.UnrealizedPnlUsd,
		"unrealized_pnl_percent": group.UnrealizedPnlPercent,
	})
}

// CloseGroup 平掉整个仓位组：撤未成交腿，市价平已成交数量
// 撤单失败不会中断平仓，错误聚合后返回
func (l *Ledger) CloseGroup(ctx context.Context, groupId int64, reason string) error {
	group, err := l.groupDao.GetByID(ctx, groupId)
	if err != nil {
		return errors.Wrap(err, ecode.NotFoundErr, "position group not found")
	}
	if group.Status.Terminal() {
		return nil
	}

	group.Status = entity.GroupClosing
	group.UpdatedAt = time.Now()
	if err := l.groupDao.Update(ctx, &group); err != nil {
		return errors.Wrap(err, ecode.InternalErr, "update position group failed")
	}

	var errs error
	orders, err := l.orderDao.ListByGroup(ctx, groupId)
	if err != nil {
		return errors.Wrap(err, ecode.InternalErr, "list dca orders failed")
	}
	for i := range orders {
		o := orders[i]
		if o.Status != entity.OrderOpen && o.Status != entity.OrderPartiallyFilled {
			continue
		}
		if err := l.gw.CancelOrder(ctx, o.ExchangeOrderId, group.Symbol); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel %s: %w", o.ExchangeOrderId, err))
			continue
		}
		now := time.Now()
		o.Status = entity.OrderCancelled
		o.CancelledAt = &now
		if err := l.orderDao.Update(ctx, &o); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	realized, closeErr := l.closeQuantity(ctx, &group, group.TotalFilledQuantity)
	if closeErr != nil {
		errs = multierr.Append(errs, closeErr)
	}

	now := time.Now()
	group.RealizedPnlUsd += realized
	group.Status = entity.GroupClosed
	group.UnrealizedPnlUsd = 0
	group.UnrealizedPnlPercent = 0
	group.ClosedAt = &now
	group.UpdatedAt = now
	if err := l.groupDao.Update(ctx, &group); err != nil {
		errs = multierr.Append(errs, err)
	}

	l.publish(ctx, &group, consts.EventGroupClosed, map[string]interface{}{
		"reason":       reason,
		"realized_usd": group.RealizedPnlUsd,
	})
	logger.Infof("仓位组平仓 group=%d reason=%s realized=%v", group.ID, reason, group.RealizedPnlUsd)
	return errs
}

// ClosePartial 按比例平掉已成交数量，返回这次实现的盈亏和平掉的数量
// 风控引擎和hybrid止盈共用
func (l *Ledger) ClosePartial(ctx context.Context, groupId int64, fraction float64, reason string) (float64, float64, error) {
	if fraction <= 0 {
		return 0, 0, nil
	}
	if fraction > 1 {
		fraction = 1
	}
	group, err := l.groupDao.GetByID(ctx, groupId)
	if err != nil {
		return 0, 0, errors.Wrap(err, ecode.NotFoundErr, "position group not found")
	}
	if group.Status.Terminal() || group.TotalFilledQuantity <= 0 {
		return 0, 0, nil
	}

	qty := group.TotalFilledQuantity * fraction
	realized, err := l.closeQuantity(ctx, &group, qty)
	if err != nil {
		return 0, 0, err
	}

	group.TotalFilledQuantity -= qty
	group.TotalInvestedUsd -= group.WeightedAvgEntry * qty
	if group.TotalInvestedUsd < 0 {
		group.TotalInvestedUsd = 0
	}
	group.RealizedPnlUsd += realized
	group.UpdatedAt = time.Now()
	if err := l.groupDao.Update(ctx, &group); err != nil {
		return realized, qty, errors.Wrap(err, ecode.InternalErr, "update position group failed")
	}
	logger.Infof("部分平仓 group=%d fraction=%v realized=%v reason=%s", group.ID, fraction, realized, reason)
	return realized, qty, nil
}

// closeQuantity 市价平掉qty数量，返回估算的实现盈亏
func (l *Ledger) closeQuantity(ctx context.Context, group *entity.PositionGroup, qty float64) (float64, error) {
	if qty <= 0 {
		return 0, nil
	}
	rule, err := l.gate.GetRule(ctx, group.Symbol)
	if err == nil {
		qty = precision.RoundQuantity(rule, qty)
	}
	if qty <= 0 {
		return 0, nil
	}

	orderID, err := l.gw.PlaceOrder(ctx, &exchange.OrderRequest{
		Symbol:    group.Symbol,
		Side:      exitSide(group.Side),
		OrderType: "market",
		Quantity:  qty,
	})
	if err != nil {
		return 0, err
	}

	exitPrice := group.WeightedAvgEntry
	if state, err := l.gw.GetOrderState(ctx, orderID, group.Symbol); err == nil && state.AvgFillPrice > 0 {
		exitPrice = state.AvgFillPrice
	} else if last, err := l.gw.GetLastPrice(ctx, group.Symbol); err == nil {
		exitPrice = last
	}

	diff := exitPrice - group.WeightedAvgEntry
	if group.Side == "short" {
		diff = -diff
	}
	return diff * qty, nil
}

func (l *Ledger) publish(ctx context.Context, group *entity.PositionGroup, event string, payload map[string]interface{}) {
	if l.producer == nil {
		return
	}
	key := fmt.Sprintf("%d:%s", group.UserId, group.Symbol)
	err := l.producer.Produce(ctx, key, kafka.ExecutionEvent{
		Type:    event,
		UserId:  group.UserId,
		GroupId: group.ID,
		Symbol:  group.Symbol,
		Payload: payload,
	})
	if err != nil {
		logger.Warnf("事件发布失败 event=%s group=%d err=%v", event, group.ID, err)
	}
}
