package exchange

import (
	"context"
	stderrors "errors"
	"net"
	"testing"

	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	if classify(nil, "noop") != nil {
		t.Error("classify(nil) should be nil")
	}

	// 超时和连接错误可重试
	if err := classify(timeoutErr{}, "place order"); !errors.IsCode(err, ecode.ExchangeTransient) {
		t.Errorf("timeout not classified transient: %v", err)
	}
	opErr := &net.OpError{Op: "dial", Err: stderrors.New("connection refused")}
	if err := classify(opErr, "place order"); !errors.IsCode(err, ecode.ExchangeTransient) {
		t.Errorf("op error not classified transient: %v", err)
	}
	if err := classify(context.DeadlineExceeded, "place order"); !errors.IsCode(err, ecode.ExchangeTransient) {
		t.Errorf("deadline not classified transient: %v", err)
	}

	// 业务错误视为交易所拒绝
	if err := classify(stderrors.New("insufficient balance"), "place order"); !errors.IsCode(err, ecode.ExchangeRejected) {
		t.Errorf("business error not classified rejected: %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	transient := classify(timeoutErr{}, "x")
	if !IsTransient(transient) {
		t.Error("transient error not recognized")
	}
	rejected := classify(stderrors.New("bad request"), "x")
	if IsTransient(rejected) {
		t.Error("rejected error recognized as transient")
	}
	if IsTransient(nil) {
		t.Error("nil recognized as transient")
	}
}
