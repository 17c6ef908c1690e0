package signal

import (
	"context"
	stderrors "errors"
	"fmt"

	"gridflow/internal/dao"
	"gridflow/internal/ledger"
	"gridflow/internal/model"
	"gridflow/internal/model/entity"
	"gridflow/internal/pool"
	"gridflow/internal/queue"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/keylock"
	"gridflow/pkg/logger"
	"gridflow/pkg/utils"

	"gorm.io/gorm"
)

// 信号处理结果
const (
	OutcomeExecuted = "executed"
	OutcomeQueued   = "queued"
	OutcomeIgnored  = "ignored"
)

// Service 信号入口：分类、准入、路由到账本或等待队列
// 同一用户的信号全程串行，准入判断和开仓之间不会被并发信号插队
type Service struct {
	locks     *keylock.KeyLock
	admission *pool.Admission
	waiting   *queue.WaitingQueue
	ledger    *ledger.Ledger
	groupDao  *dao.GroupDao
}

func NewService(admission *pool.Admission, waiting *queue.WaitingQueue, lg *ledger.Ledger, groupDao *dao.GroupDao) *Service {
	return &Service{
		locks:     keylock.New(),
		admission: admission,
		waiting:   waiting,
		ledger:    lg,
		groupDao:  groupDao,
	}
}

func userKey(userId int64) string {
	return fmt.Sprintf("user:%d", userId)
}

// Process 处理一条信号，返回处理结果
func (s *Service) Process(ctx context.Context, userId int64, sig *model.Signal) (string, error) {
	if !sig.Valid() {
		return "", errors.WithCode(ecode.MalformedSignal, "signal missing required fields")
	}

	key := userKey(userId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	switch sig.Kind() {
	case model.SignalExit:
		return s.handleExit(ctx, userId, sig)
	case model.SignalEntry, model.SignalPyramid:
		return s.handleEntry(ctx, userId, sig)
	default:
		return "", errors.WithCode(ecode.MalformedSignal, "unknown signal action %q", sig.Intent.Action)
	}
}

// shouldQueue 执行失败时信号是否转入等待队列重试
// 池满和精度规则暂不可得都是瞬态，拒绝类错误直接上抛
func shouldQueue(err error) bool {
	return errors.IsCode(err, ecode.PoolFull) || errors.IsCode(err, ecode.PrecisionUnavailable)
}

// handleEntry 已有同元组的组就加金字塔，没有就走池准入开新组
func (s *Service) handleEntry(ctx context.Context, userId int64, sig *model.Signal) (string, error) {
	symbol := utils.FormatSymbol(sig.TV.Symbol)
	group, err := s.groupDao.GetOpenGroup(ctx, userId, sig.TV.Exchange, symbol, sig.Timeframe())
	if err == nil {
		if _, err := s.ledger.AddPyramid(ctx, group.ID, sig); err != nil {
			if shouldQueue(err) {
				return s.enqueue(ctx, userId, symbol, sig)
			}
			return "", err
		}
		return OutcomeExecuted, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", errors.Wrap(err, ecode.InternalErr, "query open group failed")
	}

	if err := s.admission.Admit(ctx, userId); err != nil {
		if !shouldQueue(err) {
			return "", err
		}
		return s.enqueue(ctx, userId, symbol, sig)
	}

	if _, err := s.ledger.CreateGroup(ctx, userId, sig); err != nil {
		if shouldQueue(err) {
			return s.enqueue(ctx, userId, symbol, sig)
		}
		return "", err
	}
	return OutcomeExecuted, nil
}

// enqueue 信号进等待队列，带上同币对亏损上下文参与评分
func (s *Service) enqueue(ctx context.Context, userId int64, symbol string, sig *model.Signal) (string, error) {
	lossPercent, continuation := s.queueContext(ctx, userId, symbol)
	if _, err := s.waiting.Enqueue(ctx, userId, sig, lossPercent, continuation); err != nil {
		return "", err
	}
	return OutcomeQueued, nil
}

// handleExit 平掉同元组的组，释放的池位立即尝试晋升队列
func (s *Service) handleExit(ctx context.Context, userId int64, sig *model.Signal) (string, error) {
	symbol := utils.FormatSymbol(sig.TV.Symbol)
	group, err := s.groupDao.GetOpenGroup(ctx, userId, sig.TV.Exchange, symbol, sig.Timeframe())
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			// 没有对应仓位的exit信号直接忽略
			logger.Infof("忽略exit信号 user=%d symbol=%s：无在场仓位组", userId, symbol)
			return OutcomeIgnored, nil
		}
		return "", errors.Wrap(err, ecode.InternalErr, "query open group failed")
	}

	if err := s.ledger.CloseGroup(ctx, group.ID, "exit signal"); err != nil {
		return "", err
	}

	s.promoteWaiting(ctx, userId)
	return OutcomeExecuted, nil
}

// queueContext 入队评分的上下文：同币对最差在场组的亏损幅度
func (s *Service) queueContext(ctx context.Context, userId int64, symbol string) (lossPercent float64, continuation bool) {
	groups, err := s.groupDao.ListOpen(ctx, userId)
	if err != nil {
		return 0, false
	}
	for i := range groups {
		g := &groups[i]
		if g.Symbol != symbol {
			continue
		}
		if g.UnrealizedPnlPercent < lossPercent {
			lossPercent = g.UnrealizedPnlPercent
			continuation = true
		}
	}
	return lossPercent, continuation
}

// promoteWaiting 只要还有空位就持续晋升队首
// 晋升失败的条目留在队列，本轮不再继续，等下一次释放池位时重试
func (s *Service) promoteWaiting(ctx context.Context, userId int64) {
	for {
		slots, err := s.admission.OpenSlots(ctx, userId)
		if err != nil || slots <= 0 {
			return
		}
		promoted, err := s.waiting.PromoteNext(ctx, userId, func(ctx context.Context, entry *entity.QueueEntry, sig *model.Signal) error {
			_, err := s.ledger.CreateGroup(ctx, userId, sig)
			return err
		})
		if err != nil || !promoted {
			return
		}
	}
}

// PromoteWaiting 暴露给后台任务和管理接口的手动晋升入口
func (s *Service) PromoteWaiting(ctx context.Context, userId int64) {
	key := userKey(userId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)
	s.promoteWaiting(ctx, userId)
}

// WithUserLock 在用户锁内执行fn，后台引擎与信号处理互斥
func (s *Service) WithUserLock(userId int64, fn func()) {
	key := userKey(userId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)
	fn()
}
