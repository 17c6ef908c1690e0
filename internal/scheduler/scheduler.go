package scheduler

import (
	"context"
	"time"

	"gridflow/conf"
	"gridflow/internal/dao"
	"gridflow/internal/ledger"
	"gridflow/internal/precision"
	"gridflow/internal/risk"
	"gridflow/internal/signal"
	"gridflow/internal/takeprofit"
	"gridflow/pkg/logger"
)

// Scheduler 后台轮询任务组
// 对账、止盈、风控、精度刷新各自独立的ticker，互不阻塞
type Scheduler struct {
	cfg conf.SchedulerConfig

	ledger   *ledger.Ledger
	tpEngine *takeprofit.Engine
	riskEng  *risk.Engine
	svc      *signal.Service
	groupDao *dao.GroupDao
	gate     *precision.Gate
}

func New(cfg conf.SchedulerConfig, lg *ledger.Ledger, tp *takeprofit.Engine, re *risk.Engine, svc *signal.Service, groupDao *dao.GroupDao, gate *precision.Gate) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		ledger:   lg,
		tpEngine: tp,
		riskEng:  re,
		svc:      svc,
		groupDao: groupDao,
		gate:     gate,
	}
}

// Start 启动全部轮询任务，ctx取消时退出
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, "fill-sync", s.cfg.FillInterval, s.syncFills)
	go s.loop(ctx, "take-profit", s.cfg.TPInterval, s.runTakeProfit)
	go s.loop(ctx, "risk", s.cfg.RiskInterval, s.runRisk)
	go s.loop(ctx, "precision-refresh", s.cfg.PrecisionInterval, s.refreshPrecision)
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Infof("后台任务启动 name=%s interval=%v", name, interval)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("后台任务退出 name=%s", name)
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// 对账按用户分批进行，和信号处理共用同一把用户锁
func (s *Scheduler) syncFills(ctx context.Context) {
	s.forEachUser(ctx, func(userId int64) {
		var err error
		s.svc.WithUserLock(userId, func() {
			err = s.ledger.SyncFills(ctx, userId)
		})
		if err != nil {
			logger.Warnf("成交对账出错 user=%d err=%v", userId, err)
		}
	})
}

func (s *Scheduler) runTakeProfit(ctx context.Context) {
	s.forEachUser(ctx, func(userId int64) {
		var err error
		s.svc.WithUserLock(userId, func() {
			err = s.tpEngine.EvaluateUser(ctx, userId)
		})
		if err != nil {
			logger.Warnf("止盈检查出错 user=%d err=%v", userId, err)
		}
		// 止盈可能平掉了组，腾出的池位马上给队列
		s.svc.PromoteWaiting(ctx, userId)
	})
}

func (s *Scheduler) runRisk(ctx context.Context) {
	s.forEachUser(ctx, func(userId int64) {
		var err error
		s.svc.WithUserLock(userId, func() {
			err = s.riskEng.EvaluateUser(ctx, userId)
		})
		if err != nil {
			logger.Warnf("风险评估出错 user=%d err=%v", userId, err)
		}
		s.svc.PromoteWaiting(ctx, userId)
	})
}

func (s *Scheduler) refreshPrecision(ctx context.Context) {
	symbols, err := s.groupDao.ListOpenSymbols(ctx)
	if err != nil {
		logger.Warnf("查询在场交易对失败 err=%v", err)
		return
	}
	s.gate.Refresh(ctx, symbols)
}

func (s *Scheduler) forEachUser(ctx context.Context, fn func(userId int64)) {
	userIds, err := s.groupDao.ListOpenUsers(ctx)
	if err != nil {
		logger.Warnf("查询在场用户失败 err=%v", err)
		return
	}
	for _, userId := range userIds {
		fn(userId)
	}
}
