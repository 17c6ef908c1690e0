package signal

import (
	"fmt"
	"testing"

	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
)

func TestShouldQueue(t *testing.T) {
	// 池满和精度不可得都是瞬态，信号转入等待队列
	if !shouldQueue(errors.WithCode(ecode.PoolFull, "pool is full")) {
		t.Error("pool full should queue")
	}
	if !shouldQueue(errors.WithCode(ecode.PrecisionUnavailable, "instrument not loaded")) {
		t.Error("precision unavailable should queue")
	}

	// 包装后的码仍然能识别
	wrapped := errors.Wrap(fmt.Errorf("fetch instruments failed"), ecode.PrecisionUnavailable, "load precision")
	if !shouldQueue(wrapped) {
		t.Error("wrapped precision unavailable should queue")
	}

	// 明确拒绝类错误直接上抛，不进队列
	if shouldQueue(errors.WithCode(ecode.ExchangeRejected, "order rejected")) {
		t.Error("exchange rejection should not queue")
	}
	if shouldQueue(errors.WithCode(ecode.PyramidLimitExceeded, "limit reached")) {
		t.Error("pyramid limit should not queue")
	}
	if shouldQueue(nil) {
		t.Error("nil error should not queue")
	}
}
