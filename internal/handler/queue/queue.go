package queue

import (
	"gridflow/internal/consts"
	"gridflow/internal/queue"
	"gridflow/internal/signal"
	"gridflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type Handler struct {
	waiting *queue.WaitingQueue
	svc     *signal.Service
}

func NewHandler(waiting *queue.WaitingQueue, svc *signal.Service) *Handler {
	return &Handler{waiting: waiting, svc: svc}
}

// QueueListGet 排队中的信号，按晋升顺序返回
func (h *Handler) QueueListGet() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		entries, err := h.waiting.List(ctx, userId)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, gin.H{"list": entries})
	}
}

// QueueCancelPost 撤掉排队条目
func (h *Handler) QueueCancelPost() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		entryId := cast.ToInt64(ctx.Param("id"))

		if err := h.waiting.Cancel(ctx, userId, entryId); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// QueuePromotePost 手动触发一轮晋升
func (h *Handler) QueuePromotePost() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		h.svc.PromoteWaiting(ctx, userId)
		response.JSON(ctx, nil, nil)
	}
}
