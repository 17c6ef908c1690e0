package router

import (
	"gridflow/internal/handler/group"
	"gridflow/internal/handler/ping"
	"gridflow/internal/handler/queue"
	"gridflow/internal/handler/risk"
	"gridflow/internal/handler/webhook"
	"gridflow/internal/middleware"

	"github.com/gin-gonic/gin"
)

type ApiRouter struct {
	webhookHandler *webhook.Handler
	groupHandler   *group.Handler
	queueHandler   *queue.Handler
	riskHandler    *risk.Handler
}

func NewApiRouter(wh *webhook.Handler, gh *group.Handler, qh *queue.Handler, rh *risk.Handler) *ApiRouter {
	return &ApiRouter{webhookHandler: wh, groupHandler: gh, queueHandler: qh, riskHandler: rh}
}

func (api *ApiRouter) Load(g *gin.Engine) {

	base := g.Group("/api/v1")

	base.GET("/ping", ping.Ping())

	// 信号入口，密钥校验在receiver里做，不挂鉴权中间件
	base.POST("/webhook", api.webhookHandler.HandleWebhook())

	gr := base.Group("/groups", middleware.AuthToken())
	{
		gr.GET("/list", api.groupHandler.GroupListGet())
		gr.GET("/:id", api.groupHandler.GroupDetailGet())
		gr.POST("/:id/close", middleware.AntiDuplicate(), api.groupHandler.GroupClosePost())
	}

	q := base.Group("/queue", middleware.AuthToken())
	{
		q.GET("/list", api.queueHandler.QueueListGet())
		q.POST("/:id/cancel", api.queueHandler.QueueCancelPost())
		q.POST("/promote", middleware.AntiDuplicate(), api.queueHandler.QueuePromotePost())
	}

	r := base.Group("/risk", middleware.AuthToken())
	{
		r.GET("/actions", api.riskHandler.ActionListGet())
		r.POST("/evaluate", middleware.AntiDuplicate(), api.riskHandler.EvaluatePost())
		r.POST("/groups/:id/block", api.riskHandler.BlockPost())
		r.POST("/groups/:id/skip-once", api.riskHandler.SkipOncePost())
	}
}
