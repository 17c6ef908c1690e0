package risk

import (
	"gridflow/internal/consts"
	"gridflow/internal/dao"
	"gridflow/internal/risk"
	"gridflow/internal/signal"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type Handler struct {
	actionDao *dao.RiskActionDao
	groupDao  *dao.GroupDao
	engine    *risk.Engine
	svc       *signal.Service
}

func NewHandler(actionDao *dao.RiskActionDao, groupDao *dao.GroupDao, engine *risk.Engine, svc *signal.Service) *Handler {
	return &Handler{actionDao: actionDao, groupDao: groupDao, engine: engine, svc: svc}
}

// ActionListGet 风控执行历史
func (h *Handler) ActionListGet() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		page := cast.ToInt(ctx.DefaultQuery("page", "1"))
		pageSize := cast.ToInt(ctx.DefaultQuery("page_size", "20"))

		actions, total, err := h.actionDao.List(ctx, userId, page, pageSize)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.InternalErr, "查询风控记录失败"), nil)
			return
		}
		response.JSON(ctx, nil, gin.H{
			"total": total,
			"list":  actions,
		})
	}
}

// EvaluatePost 手动触发一轮风险评估
func (h *Handler) EvaluatePost() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		var err error
		h.svc.WithUserLock(userId, func() {
			err = h.engine.EvaluateUser(ctx, userId)
		})
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// BlockPost 屏蔽/解除屏蔽某个组的风控
func (h *Handler) BlockPost() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		groupId := cast.ToInt64(ctx.Param("id"))
		blocked := cast.ToBool(ctx.DefaultQuery("blocked", "true"))

		group, err := h.groupDao.GetByID(ctx, groupId)
		if err != nil || group.UserId != userId {
			response.JSON(ctx, errors.WithCode(ecode.NotFoundErr, "仓位组不存在"), nil)
			return
		}
		if err := h.groupDao.UpdateFields(ctx, groupId, map[string]interface{}{
			"risk_blocked": blocked,
		}); err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.InternalErr, "更新失败"), nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// SkipOncePost 让某个组跳过下一次风险评估
func (h *Handler) SkipOncePost() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		groupId := cast.ToInt64(ctx.Param("id"))

		group, err := h.groupDao.GetByID(ctx, groupId)
		if err != nil || group.UserId != userId {
			response.JSON(ctx, errors.WithCode(ecode.NotFoundErr, "仓位组不存在"), nil)
			return
		}
		if err := h.groupDao.UpdateFields(ctx, groupId, map[string]interface{}{
			"risk_skip_once": true,
		}); err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.InternalErr, "更新失败"), nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}
