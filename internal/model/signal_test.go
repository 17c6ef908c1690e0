package model

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestSignal_Unmarshal(t *testing.T) {
	body := `{
		"secret": "ab12cd34",
		"tv": {"exchange": "okx", "symbol": "BTC/USDT", "timeframe": "15m", "price": "31250.5"},
		"execution_intent": {"action": "buy", "amount": "500", "strategy": "dca-v1", "type": "signal"}
	}`

	var sig Signal
	if err := json.Unmarshal([]byte(body), &sig); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !sig.Valid() {
		t.Fatal("signal should be valid")
	}
	// TradingView的价格可能是字符串
	if got := sig.TV.EntryPrice(); got != 31250.5 {
		t.Errorf("entry price = %v, want 31250.5", got)
	}
	if got := sig.Intent.AmountUSD(); got != 500 {
		t.Errorf("amount = %v, want 500", got)
	}
	if sig.Kind() != SignalEntry {
		t.Errorf("kind = %s, want new_entry", sig.Kind())
	}
	if sig.Side() != "long" {
		t.Errorf("side = %s, want long", sig.Side())
	}
	if sig.Timeframe() != "15m" {
		t.Errorf("timeframe = %s, want 15m", sig.Timeframe())
	}
}

func TestSignal_Valid(t *testing.T) {
	sig := &Signal{}
	if sig.Valid() {
		t.Error("empty signal should be invalid")
	}

	sig = &Signal{
		TV:     &TVPayload{Exchange: "okx", Symbol: "ETH/USDT"},
		Intent: &ExecutionIntent{Action: "hold", Type: "signal"},
	}
	if sig.Valid() {
		t.Error("unknown action should be invalid")
	}

	sig.Intent.Action = "SELL"
	if !sig.Valid() {
		t.Error("action should be case insensitive")
	}
	if sig.Side() != "short" {
		t.Errorf("side = %s, want short", sig.Side())
	}
}

func TestSignal_Kind(t *testing.T) {
	cases := map[string]SignalKind{
		"signal":  SignalEntry,
		"pyramid": SignalPyramid,
		"exit":    SignalExit,
		"EXIT":    SignalExit,
		"other":   SignalUnknown,
	}
	for typ, want := range cases {
		sig := &Signal{Intent: &ExecutionIntent{Type: typ}}
		if got := sig.Kind(); got != want {
			t.Errorf("Kind(%q) = %s, want %s", typ, got, want)
		}
	}
	none := &Signal{}
	if none.Kind() != SignalUnknown {
		t.Error("nil intent should map to unknown")
	}
}

func TestSignal_TimeframeDefault(t *testing.T) {
	sig := &Signal{TV: &TVPayload{Exchange: "okx", Symbol: "BTC/USDT"}}
	if got := sig.Timeframe(); got != "1m" {
		t.Errorf("default timeframe = %s, want 1m", got)
	}
}

func TestSignal_NumericPriceBody(t *testing.T) {
	// cmd/main.go注释里的联调请求体，price为数字
	body := `{"secret":"ab12cd34ef56","tv":{"exchange":"OKX","symbol":"BTC/USDT","timeframe":"1h","price":113990},"execution_intent":{"action":"buy","type":"signal"}}`

	var sig Signal
	if err := json.Unmarshal([]byte(body), &sig); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !sig.Valid() {
		t.Fatal("signal should be valid")
	}
	if sig.Kind() != SignalEntry {
		t.Errorf("kind = %v, want entry", sig.Kind())
	}
	if got := sig.TV.EntryPrice(); got != 113990 {
		t.Errorf("entry price = %v, want 113990", got)
	}
	if sig.Timeframe() != "1h" {
		t.Errorf("timeframe = %v, want 1h", sig.Timeframe())
	}
}
