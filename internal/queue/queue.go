package queue

import (
	"context"
	stderrors "errors"
	"time"

	"gridflow/conf"
	"gridflow/internal/dao"
	"gridflow/internal/model"
	"gridflow/internal/model/entity"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/logger"
	"gridflow/pkg/utils"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WaitingQueue 池满时的信号等待区
// 晋升顺序：亏损组续仓优先 > priority_score降序 > replacement_count降序 > created_at升序
// 同一(用户,交易所,币对,周期)最多一条排队记录，新信号到达时原地替换
type WaitingQueue struct {
	queueDao *dao.QueueDao
	riskCfg  conf.RiskConfig
}

func New(queueDao *dao.QueueDao, riskCfg conf.RiskConfig) *WaitingQueue {
	return &WaitingQueue{queueDao: queueDao, riskCfg: riskCfg}
}

// PriorityScore 亏损越深的信号越优先，对亏损组的续仓信号额外加分
// 盈利中的信号（lossPercent>0）不加亏损分
func (q *WaitingQueue) PriorityScore(lossPercent float64, continuation bool) float64 {
	score := 0.0
	if lossPercent < 0 {
		score += q.riskCfg.LossWeight * -lossPercent
	}
	if continuation {
		score += q.riskCfg.ContinuationBonus
	}
	return score
}

// Enqueue 信号入队。已有同元组的排队条目时替换其载荷并抬高replacement_count
func (q *WaitingQueue) Enqueue(ctx context.Context, userId int64, sig *model.Signal, lossPercent float64, continuation bool) (*entity.QueueEntry, error) {
	symbol := utils.FormatSymbol(sig.TV.Symbol)
	timeframe := sig.Timeframe()
	score := q.PriorityScore(lossPercent, continuation)

	// 载荷里不保存secret
	clean := *sig
	clean.Secret = ""
	raw, err := json.Marshal(&clean)
	if err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "marshal signal failed")
	}

	existing, err := q.queueDao.GetQueued(ctx, userId, sig.TV.Exchange, symbol, timeframe)
	if err == nil {
		existing.Payload = datatypes.JSON(raw)
		existing.Side = sig.Side()
		existing.PriorityScore = score
		existing.ReplacementCount++
		existing.IsPyramidContinuation = continuation
		existing.CurrentLossPercent = lossPercent
		existing.UpdatedAt = time.Now()
		if err := q.queueDao.Update(ctx, &existing); err != nil {
			return nil, errors.Wrap(err, ecode.InternalErr, "replace queue entry failed")
		}
		logger.Infof("队列替换 entry=%d user=%d symbol=%s score=%v count=%d",
			existing.ID, userId, symbol, score, existing.ReplacementCount)
		return &existing, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, ecode.InternalErr, "query queue entry failed")
	}

	now := time.Now()
	entry := &entity.QueueEntry{
		ID:                    utils.NextID(),
		UserId:                userId,
		Exchange:              sig.TV.Exchange,
		Symbol:                symbol,
		Timeframe:             timeframe,
		Side:                  sig.Side(),
		Payload:               datatypes.JSON(raw),
		PriorityScore:         score,
		IsPyramidContinuation: continuation,
		CurrentLossPercent:    lossPercent,
		Status:                entity.QueueQueued,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := q.queueDao.Insert(ctx, entry); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "insert queue entry failed")
	}
	logger.Infof("信号入队 entry=%d user=%d symbol=%s score=%v", entry.ID, userId, symbol, score)
	return entry, nil
}

// rankBefore 晋升顺位：亏损续仓优先 > priority_score降序 > replacement_count降序 > created_at升序
func rankBefore(a, b *entity.QueueEntry) bool {
	if a.IsPyramidContinuation != b.IsPyramidContinuation {
		return a.IsPyramidContinuation
	}
	if a.PriorityScore != b.PriorityScore {
		return a.PriorityScore > b.PriorityScore
	}
	if a.ReplacementCount != b.ReplacementCount {
		return a.ReplacementCount > b.ReplacementCount
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// head 从排队条目里选出下一个晋升者，空队列返回nil
func head(entries []entity.QueueEntry) *entity.QueueEntry {
	var best *entity.QueueEntry
	for i := range entries {
		if best == nil || rankBefore(&entries[i], best) {
			best = &entries[i]
		}
	}
	return best
}

// PromoteNext 取队首条目执行openFn开仓
// 开仓失败时条目留在队列，replacement_count+1使其保持领先
// 队列为空返回(false, nil)
func (q *WaitingQueue) PromoteNext(ctx context.Context, userId int64, openFn func(ctx context.Context, entry *entity.QueueEntry, sig *model.Signal) error) (bool, error) {
	entries, err := q.queueDao.ListQueued(ctx, userId)
	if err != nil {
		return false, errors.Wrap(err, ecode.InternalErr, "query queue failed")
	}
	best := head(entries)
	if best == nil {
		return false, nil
	}
	entry := *best

	var sig model.Signal
	if err := json.Unmarshal(entry.Payload, &sig); err != nil {
		// 载荷损坏的条目直接作废，不能堵住整个队列
		logger.Errorf("队列载荷损坏 entry=%d err=%v", entry.ID, err)
		return false, q.queueDao.Cancel(ctx, entry.ID)
	}

	if err := openFn(ctx, &entry, &sig); err != nil {
		entry.ReplacementCount++
		entry.UpdatedAt = time.Now()
		if updErr := q.queueDao.Update(ctx, &entry); updErr != nil {
			logger.Errorf("回写队列条目失败 entry=%d err=%v", entry.ID, updErr)
		}
		logger.Warnf("队列晋升失败 entry=%d user=%d err=%v", entry.ID, userId, err)
		return false, err
	}

	if err := q.queueDao.MarkPromoted(ctx, entry.ID); err != nil {
		return true, errors.Wrap(err, ecode.InternalErr, "mark promoted failed")
	}
	logger.Infof("队列晋升 entry=%d user=%d symbol=%s", entry.ID, userId, entry.Symbol)
	return true, nil
}

// List 用户排队中的条目
func (q *WaitingQueue) List(ctx context.Context, userId int64) ([]entity.QueueEntry, error) {
	return q.queueDao.ListQueued(ctx, userId)
}

// Cancel 手动撤掉排队条目
func (q *WaitingQueue) Cancel(ctx context.Context, userId, entryId int64) error {
	entry, err := q.queueDao.GetByID(ctx, entryId)
	if err != nil {
		return errors.Wrap(err, ecode.NotFoundErr, "queue entry not found")
	}
	if entry.UserId != userId {
		return errors.WithCode(ecode.NotFoundErr, "queue entry %d not found", entryId)
	}
	if entry.Status != entity.QueueQueued {
		return errors.WithCode(ecode.ValidateErr, "queue entry %d is not queued", entryId)
	}
	return q.queueDao.Cancel(ctx, entry.ID)
}
