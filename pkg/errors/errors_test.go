package errors

import (
	stderrors "errors"
	"testing"

	"gridflow/pkg/errors/ecode"
)

func TestDecodeErr(t *testing.T) {
	code, msg := DecodeErr(nil)
	if code != ecode.Success || msg != "ok" {
		t.Errorf("DecodeErr(nil) = (%d, %q)", code, msg)
	}

	err := WithCode(ecode.PoolFull, "pool full for user %d", 7)
	code, msg = DecodeErr(err)
	if code != ecode.PoolFull {
		t.Errorf("code = %d, want %d", code, ecode.PoolFull)
	}
	if msg != "pool full for user 7" {
		t.Errorf("msg = %q", msg)
	}

	// 非codeError归到Unknown
	code, _ = DecodeErr(stderrors.New("plain"))
	if code != ecode.Unknown {
		t.Errorf("plain error code = %d, want Unknown", code)
	}
}

func TestWrapAndIsCode(t *testing.T) {
	cause := stderrors.New("dial tcp: timeout")
	err := Wrap(cause, ecode.ExchangeTransient, "place order failed")

	if !IsCode(err, ecode.ExchangeTransient) {
		t.Error("wrapped code not found")
	}
	if IsCode(err, ecode.ExchangeRejected) {
		t.Error("unexpected code matched")
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}

	// 多层包装时内层码也能命中
	outer := Wrapf(err, ecode.InternalErr, "submit ladder leg %d", 2)
	if !IsCode(outer, ecode.ExchangeTransient) {
		t.Error("inner code not found through chain")
	}
	if !IsCode(outer, ecode.InternalErr) {
		t.Error("outer code not found")
	}

	if IsCode(nil, ecode.InternalErr) {
		t.Error("nil should not match any code")
	}
}
