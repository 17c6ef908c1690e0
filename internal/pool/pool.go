package pool

import (
	"context"

	"gridflow/conf"
	"gridflow/internal/dao"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
)

// Admission 执行池准入控制
// 只统计非终态仓位组，closed/failed的组即刻释放池位
// 准入判断和开仓必须在同一把用户锁内完成，否则并发信号会挤爆池子
type Admission struct {
	cfg      conf.PoolConfig
	groupDao *dao.GroupDao
}

func NewAdmission(cfg conf.PoolConfig, groupDao *dao.GroupDao) *Admission {
	return &Admission{cfg: cfg, groupDao: groupDao}
}

func (a *Admission) MaxOpenGroups() int {
	return a.cfg.MaxOpenGroups
}

// OpenSlots 用户当前剩余池位
func (a *Admission) OpenSlots(ctx context.Context, userId int64) (int, error) {
	count, err := a.groupDao.CountOpen(ctx, userId)
	if err != nil {
		return 0, errors.Wrap(err, ecode.InternalErr, "count open groups failed")
	}
	slots := a.cfg.MaxOpenGroups - int(count)
	if slots < 0 {
		slots = 0
	}
	return slots, nil
}

// Admit 池满时返回PoolFull错误，调用方据此转入等待队列
func (a *Admission) Admit(ctx context.Context, userId int64) error {
	slots, err := a.OpenSlots(ctx, userId)
	if err != nil {
		return err
	}
	if slots <= 0 {
		return errors.WithCode(ecode.PoolFull, "execution pool is full (max %d)", a.cfg.MaxOpenGroups)
	}
	return nil
}
