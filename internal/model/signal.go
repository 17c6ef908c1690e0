package model

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// TradingView webhook信号的入站契约
// { "secret": "...", "tv": {...}, "execution_intent": {...} }

// SignalKind 信号分类：新开仓 / 金字塔加仓 / 离场
type SignalKind string

const (
	SignalEntry   SignalKind = "new_entry"
	SignalPyramid SignalKind = "pyramid"
	SignalExit    SignalKind = "exit"
	SignalUnknown SignalKind = "unknown"
)

// TVPayload tv字段，来自TradingView告警的原始行情上下文
type TVPayload struct {
	Exchange  string      `json:"exchange"`
	Symbol    string      `json:"symbol"`
	Timeframe string      `json:"timeframe"`
	Price     interface{} `json:"price,omitempty"`    // TradingView可能发字符串或数字
	Interval  interface{} `json:"interval,omitempty"` // 兼容旧版告警字段
}

// EntryPrice 容错地解析tv里的价格字段
func (tv *TVPayload) EntryPrice() float64 {
	return cast.ToFloat64(tv.Price)
}

// ExecutionIntent execution_intent字段，描述信号要做什么
type ExecutionIntent struct {
	Action   string      `json:"action"` // buy / sell
	Amount   interface{} `json:"amount"`
	Strategy string      `json:"strategy"`
	Type     string      `json:"type"` // signal / pyramid / exit
}

func (ei *ExecutionIntent) AmountUSD() float64 {
	return cast.ToFloat64(ei.Amount)
}

// Signal 一条完整的入站信号
type Signal struct {
	Secret string           `json:"secret"`
	UserId int64            `json:"user_id,omitempty"` // 多租户部署时由告警模板带上，缺省为默认租户
	TV     *TVPayload       `json:"tv"`
	Intent *ExecutionIntent `json:"execution_intent"`

	// 以下为接入层补充的元数据，不参与反序列化
	ID         string    `json:"-"` // 接入时分配
	ReceivedAt time.Time `json:"-"`
}

// Valid 校验信号的完整性，缺少tv或execution_intent视为畸形信号
func (s *Signal) Valid() bool {
	if s.TV == nil || s.Intent == nil {
		return false
	}
	if s.TV.Exchange == "" || s.TV.Symbol == "" {
		return false
	}
	action := strings.ToLower(s.Intent.Action)
	return action == "buy" || action == "sell"
}

// Kind 分类信号：新开仓、金字塔续仓、离场
func (s *Signal) Kind() SignalKind {
	if s.Intent == nil {
		return SignalUnknown
	}
	switch strings.ToLower(s.Intent.Type) {
	case "signal":
		return SignalEntry
	case "pyramid":
		return SignalPyramid
	case "exit":
		return SignalExit
	default:
		return SignalUnknown
	}
}

// Timeframe 归一化的周期，缺省1m
func (s *Signal) Timeframe() string {
	if s.TV == nil || s.TV.Timeframe == "" {
		return "1m"
	}
	return s.TV.Timeframe
}

// Side 信号方向映射到仓位方向：buy -> long，sell -> short
func (s *Signal) Side() string {
	if s.Intent != nil && strings.ToLower(s.Intent.Action) == "sell" {
		return "short"
	}
	return "long"
}
