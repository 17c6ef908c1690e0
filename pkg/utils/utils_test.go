package utils

import (
	"errors"
	"testing"
	"time"
)

func TestFormatSymbol(t *testing.T) {
	cases := map[string]string{
		"BTCUSDT":  "BTC/USDT",
		"BTC/USDT": "BTC/USDT",
		"ETHUSD":   "ETH/USD",
		"SOLUSDC":  "SOL/USDC",
		"XAUJPY":   "XAUJPY", // 未识别的quote原样返回
	}
	for in, want := range cases {
		if got := FormatSymbol(in); got != want {
			t.Errorf("FormatSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRetry(t *testing.T) {
	// 第二次成功
	calls := 0
	err := Retry(3, time.Millisecond, false, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}

	// 全部失败
	calls = 0
	err = Retry(3, time.Millisecond, true, func() error {
		calls++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestGenRequestId(t *testing.T) {
	a := GenRequestId()
	b := GenRequestId()
	if len(a) != 16 || len(b) != 16 {
		t.Errorf("request id length: %d / %d, want 16", len(a), len(b))
	}
	if a == b {
		t.Error("request ids should differ")
	}
}

func TestNextID(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := NextID()
		if id <= 0 {
			t.Fatalf("invalid id: %d", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id: %d", id)
		}
		seen[id] = true
	}
}
