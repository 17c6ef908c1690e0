package webhook

import (
	"io"

	"gridflow/internal/webhook"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	receiver *webhook.Receiver
}

func NewHandler(receiver *webhook.Receiver) *Handler {
	return &Handler{receiver: receiver}
}

// HandleWebhook 接收TradingView告警
func (h *Handler) HandleWebhook() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.MalformedSignal, "read body failed"), nil)
			return
		}

		outcome, err := h.receiver.Handle(ctx, body, ctx.ClientIP())
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, gin.H{"outcome": outcome})
	}
}
