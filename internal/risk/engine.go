package risk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gridflow/conf"
	"gridflow/internal/consts"
	"gridflow/internal/dao"
	"gridflow/internal/ledger"
	"gridflow/internal/model/entity"
	"gridflow/pkg/kafka"
	"gridflow/pkg/logger"
	"gridflow/pkg/utils"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
	"gorm.io/datatypes"
)

// Engine 风险缓解引擎
// 找到最深的合格亏损组，部分平掉盈利组实现浮盈来对冲它，动作只追加记录
// 亏损组本身保留，盈利不足时只覆盖一部分
type Engine struct {
	cfg       conf.RiskConfig
	groupDao  *dao.GroupDao
	actionDao *dao.RiskActionDao
	ledger    *ledger.Ledger
	producer  kafka.ProducerService
}

func NewEngine(cfg conf.RiskConfig, groupDao *dao.GroupDao, actionDao *dao.RiskActionDao, lg *ledger.Ledger, producer kafka.ProducerService) *Engine {
	return &Engine{cfg: cfg, groupDao: groupDao, actionDao: actionDao, ledger: lg, producer: producer}
}

// eligible 亏损组是否满足缓解条件
// 需要：未被屏蔽、亏损过阈值、（可选）金字塔满仓、最近一次加仓后的等待期已过
func (e *Engine) eligible(group *entity.PositionGroup, now time.Time) bool {
	if group.RiskBlocked {
		return false
	}
	if group.UnrealizedPnlPercent > e.cfg.LossThresholdPercent {
		return false
	}
	if e.cfg.RequireFullPyramids && group.PyramidCount < group.MaxPyramids {
		return false
	}
	// 等待期独立于满仓要求，计时器随每次加仓重置
	if e.cfg.PostFullWaitMinutes > 0 {
		if group.RiskTimerExpires == nil || now.Before(*group.RiskTimerExpires) {
			return false
		}
	}
	return true
}

// sortLosers 亏损最深的组排在前面：pnl_percent升序 > pnl_usd升序 > created_at升序
func sortLosers(losers []*entity.PositionGroup) {
	sort.Slice(losers, func(i, j int) bool {
		a, b := losers[i], losers[j]
		if a.UnrealizedPnlPercent != b.UnrealizedPnlPercent {
			return a.UnrealizedPnlPercent < b.UnrealizedPnlPercent
		}
		if a.UnrealizedPnlUsd != b.UnrealizedPnlUsd {
			return a.UnrealizedPnlUsd < b.UnrealizedPnlUsd
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// selectWinners 浮盈大的先动用：pnl_usd降序，最多取limit个
func selectWinners(winners []*entity.PositionGroup, limit int) []*entity.PositionGroup {
	sort.Slice(winners, func(i, j int) bool {
		return winners[i].UnrealizedPnlUsd > winners[j].UnrealizedPnlUsd
	})
	if limit > 0 && len(winners) > limit {
		winners = winners[:limit]
	}
	return winners
}

// allocation 单个盈利仓在本轮对冲中要实现的份额
type allocation struct {
	group     *entity.PositionGroup
	fraction  float64
	toRealize float64
}

// planMitigation 按盈利仓顺序分摊required，盈利耗尽时只能部分覆盖
func planMitigation(required float64, winners []*entity.PositionGroup) []allocation {
	var plan []allocation
	covered := 0.0
	for _, w := range winners {
		if covered >= required {
			break
		}
		if w.UnrealizedPnlUsd <= 0 {
			continue
		}
		toRealize := required - covered
		if toRealize > w.UnrealizedPnlUsd {
			toRealize = w.UnrealizedPnlUsd
		}
		plan = append(plan, allocation{group: w, fraction: toRealize / w.UnrealizedPnlUsd, toRealize: toRealize})
		covered += toRealize
	}
	return plan
}

// EvaluateUser 对用户执行一轮风险评估，每轮最多缓解一个亏损组
func (e *Engine) EvaluateUser(ctx context.Context, userId int64) error {
	groups, err := e.groupDao.ListOpen(ctx, userId)
	if err != nil {
		return err
	}

	var errs error
	for i := range groups {
		if err := e.ledger.RefreshPnL(ctx, &groups[i]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	now := time.Now()
	var losers []*entity.PositionGroup
	var winners []*entity.PositionGroup
	for i := range groups {
		g := &groups[i]
		if g.Status == entity.GroupClosing {
			continue
		}
		if e.eligible(g, now) {
			losers = append(losers, g)
		} else if g.UnrealizedPnlUsd > 0 {
			winners = append(winners, g)
		}
	}
	if len(losers) == 0 {
		return errs
	}

	// 亏损最深的组先处理
	sortLosers(losers)
	loser := losers[0]

	if loser.RiskSkipOnce {
		// 跳过一次后自动复位
		if err := e.groupDao.UpdateFields(ctx, loser.ID, map[string]interface{}{
			"risk_skip_once": false,
		}); err != nil {
			return multierr.Append(errs, err)
		}
		e.record(ctx, userId, entity.RiskSkipped, loser, nil, 0, 0, "skip once flag")
		return errs
	}

	winners = selectWinners(winners, e.cfg.MaxWinnersToCombine)

	required := -loser.UnrealizedPnlUsd
	var covered float64
	var details []entity.WinnerDetail
	for _, a := range planMitigation(required, winners) {
		realized, qty, err := e.ledger.ClosePartial(ctx, a.group.ID, a.fraction, "risk mitigation")
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		covered += realized
		details = append(details, entity.WinnerDetail{GroupId: a.group.ID, RealizedUsd: realized, QuantityClosed: qty})
	}

	// 亏损组不强制清仓，盈利耗尽时如实记录部分覆盖
	reason := fmt.Sprintf("loss %.2f%% breached threshold %.2f%%", loser.UnrealizedPnlPercent, e.cfg.LossThresholdPercent)
	e.record(ctx, userId, entity.RiskOffsetLoss, loser, details, required, covered, reason)

	logger.Infof("风险缓解执行 user=%d loser=%d required=%v covered=%v winners=%d",
		userId, loser.ID, required, covered, len(details))
	return errs
}

func (e *Engine) record(ctx context.Context, userId int64, action entity.RiskActionType, loser *entity.PositionGroup, details []entity.WinnerDetail, required, covered float64, reason string) {
	raw, _ := json.Marshal(details)
	rec := &entity.RiskAction{
		ID:            utils.NextID(),
		UserId:        userId,
		Action:        action,
		LoserGroupId:  loser.ID,
		LoserPnlUsd:   loser.UnrealizedPnlUsd,
		WinnerDetails: datatypes.JSON(raw),
		RequiredUsd:   required,
		CoveredUsd:    covered,
		Reason:        reason,
		CreatedAt:     time.Now(),
	}
	if err := e.actionDao.Insert(ctx, rec); err != nil {
		logger.Errorf("风控记录写入失败 user=%d loser=%d err=%v", userId, loser.ID, err)
	}

	if e.producer != nil {
		key := fmt.Sprintf("%d:%s", userId, loser.Symbol)
		err := e.producer.Produce(ctx, key, kafka.ExecutionEvent{
			Type:    consts.EventRiskAction,
			UserId:  userId,
			GroupId: loser.ID,
			Symbol:  loser.Symbol,
			Payload: rec,
		})
		if err != nil {
			logger.Warnf("风控事件发布失败 user=%d err=%v", userId, err)
		}
	}
}
