package webhook

import (
	"context"
	"crypto/subtle"
	"time"

	"gridflow/internal/dao"
	"gridflow/internal/model"
	"gridflow/internal/model/entity"
	"gridflow/internal/signal"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/logger"
	"gridflow/pkg/utils"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
)

// 未带user_id的告警归到默认租户
const defaultUserId int64 = 1

// Receiver TradingView告警的接收器：验密、解析、交给信号服务
// 每条入站告警无论成败都落一条webhook_logs
type Receiver struct {
	svc    *signal.Service
	logDao *dao.WebhookLogDao
	secret string
}

func NewReceiver(svc *signal.Service, logDao *dao.WebhookLogDao, secret string) *Receiver {
	return &Receiver{svc: svc, logDao: logDao, secret: secret}
}

// Handle 处理一条原始告警。返回处理结果和错误
func (r *Receiver) Handle(ctx context.Context, body []byte, remoteIp string) (string, error) {
	started := time.Now()

	var sig model.Signal
	if err := json.Unmarshal(body, &sig); err != nil {
		r.log(ctx, &sig, body, remoteIp, "rejected", "invalid json", started)
		return "", errors.Wrap(err, ecode.MalformedSignal, "invalid webhook payload")
	}
	sig.ID = utils.GenRequestId()
	sig.ReceivedAt = started

	// 常数时间比较，密钥不对直接401
	if subtle.ConstantTimeCompare([]byte(sig.Secret), []byte(r.secret)) != 1 {
		r.log(ctx, &sig, body, remoteIp, "rejected", "bad secret", started)
		return "", errors.WithCode(ecode.Unauthorized, "webhook secret mismatch")
	}

	userId := sig.UserId
	if userId <= 0 {
		userId = defaultUserId
	}

	outcome, err := r.svc.Process(ctx, userId, &sig)
	if err != nil {
		code, msg := errors.DecodeErr(err)
		r.log(ctx, &sig, body, remoteIp, "failed", msg, started)
		logger.Warnf("信号处理失败 signal=%s code=%d err=%v", sig.ID, code, err)
		return "", err
	}

	r.log(ctx, &sig, body, remoteIp, outcome, "", started)
	return outcome, nil
}

func (r *Receiver) log(ctx context.Context, sig *model.Signal, body []byte, remoteIp, outcome, detail string, started time.Time) {
	if r.logDao == nil {
		return
	}
	// 原始body里有secret，抹掉再落库
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err == nil {
		delete(raw, "secret")
		if redacted, err := json.Marshal(raw); err == nil {
			body = redacted
		}
	}

	userId := sig.UserId
	if userId <= 0 {
		userId = defaultUserId
	}
	entry := &entity.WebhookLog{
		ID:        utils.NextID(),
		UserId:    userId,
		SignalId:  sig.ID,
		RemoteIp:  remoteIp,
		Body:      datatypes.JSON(body),
		Kind:      string(sig.Kind()),
		Outcome:   outcome,
		Detail:    detail,
		CostMs:    time.Since(started).Milliseconds(),
		CreatedAt: time.Now(),
	}
	if err := r.logDao.Insert(ctx, entry); err != nil {
		logger.Errorf("webhook日志写入失败 signal=%s err=%v", sig.ID, err)
	}
}
