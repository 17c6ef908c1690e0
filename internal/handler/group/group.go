package group

import (
	"gridflow/internal/consts"
	"gridflow/internal/dao"
	"gridflow/internal/ledger"
	"gridflow/internal/model/entity"
	"gridflow/internal/signal"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type Handler struct {
	groupDao   *dao.GroupDao
	pyramidDao *dao.PyramidDao
	orderDao   *dao.OrderDao
	ledger     *ledger.Ledger
	svc        *signal.Service
}

func NewHandler(groupDao *dao.GroupDao, pyramidDao *dao.PyramidDao, orderDao *dao.OrderDao, lg *ledger.Ledger, svc *signal.Service) *Handler {
	return &Handler{groupDao: groupDao, pyramidDao: pyramidDao, orderDao: orderDao, ledger: lg, svc: svc}
}

// GroupListGet 分页查询仓位组，支持status过滤
func (h *Handler) GroupListGet() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		status := entity.GroupStatus(ctx.Query("status"))
		page := cast.ToInt(ctx.DefaultQuery("page", "1"))
		pageSize := cast.ToInt(ctx.DefaultQuery("page_size", "20"))

		groups, total, err := h.groupDao.List(ctx, userId, status, page, pageSize)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.InternalErr, "查询仓位组失败"), nil)
			return
		}
		response.JSON(ctx, nil, gin.H{
			"total": total,
			"list":  groups,
		})
	}
}

// GroupDetailGet 仓位组详情，含金字塔和DCA腿
func (h *Handler) GroupDetailGet() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		groupId := cast.ToInt64(ctx.Param("id"))

		group, err := h.groupDao.GetByID(ctx, groupId)
		if err != nil || group.UserId != userId {
			response.JSON(ctx, errors.WithCode(ecode.NotFoundErr, "仓位组不存在"), nil)
			return
		}

		pyramids, err := h.pyramidDao.ListByGroup(ctx, groupId)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.InternalErr, "查询金字塔失败"), nil)
			return
		}
		orders, err := h.orderDao.ListByGroup(ctx, groupId)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.InternalErr, "查询DCA腿失败"), nil)
			return
		}
		response.JSON(ctx, nil, gin.H{
			"group":    group,
			"pyramids": pyramids,
			"orders":   orders,
		})
	}
}

// GroupClosePost 手动平掉仓位组，释放的池位会触发队列晋升
func (h *Handler) GroupClosePost() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		groupId := cast.ToInt64(ctx.Param("id"))

		group, err := h.groupDao.GetByID(ctx, groupId)
		if err != nil || group.UserId != userId {
			response.JSON(ctx, errors.WithCode(ecode.NotFoundErr, "仓位组不存在"), nil)
			return
		}

		var closeErr error
		h.svc.WithUserLock(userId, func() {
			closeErr = h.ledger.CloseGroup(ctx, groupId, "manual close")
		})
		if closeErr != nil {
			response.JSON(ctx, closeErr, nil)
			return
		}
		h.svc.PromoteWaiting(ctx, userId)
		response.JSON(ctx, nil, nil)
	}
}
