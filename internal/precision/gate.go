package precision

import (
	"context"
	"time"

	"gridflow/internal/consts"
	"gridflow/internal/exchange"
	"gridflow/internal/model"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
)

// Gate 精度闸门：下单前把价格和数量对齐到交易所规则
// 规则缓存两级：本地LRU -> redis -> 交易所接口
type Gate struct {
	gw    exchange.Gateway
	rc    *redis.Client
	local *lru.Cache
	ttl   time.Duration
}

type cachedRule struct {
	Rule      model.PrecisionRule `json:"rule"`
	ExpiresAt time.Time           `json:"expires_at"`
}

func NewGate(gw exchange.Gateway, rc *redis.Client, localSize int, ttl time.Duration) (*Gate, error) {
	local, err := lru.New(localSize)
	if err != nil {
		return nil, err
	}
	return &Gate{gw: gw, rc: rc, local: local, ttl: ttl}, nil
}

// GetRule 读取交易对的精度规则，缓存未命中或过期时回源交易所
func (g *Gate) GetRule(ctx context.Context, symbol string) (model.PrecisionRule, error) {
	if v, ok := g.local.Get(symbol); ok {
		cached := v.(cachedRule)
		if time.Now().Before(cached.ExpiresAt) {
			return cached.Rule, nil
		}
		g.local.Remove(symbol)
	}

	// 先从redis缓存中查找
	rdsKey := consts.PrecisionRuleKeyPrefix + symbol
	if g.rc != nil {
		bytes, err := g.rc.Get(ctx, rdsKey).Bytes()
		if err == nil {
			var cached cachedRule
			if err = json.Unmarshal(bytes, &cached); err == nil && time.Now().Before(cached.ExpiresAt) {
				g.local.Add(symbol, cached)
				return cached.Rule, nil
			}
		} else if err != redis.Nil {
			logger.Errorf("Redis连接异常:%v", err.Error())
		}
	}

	rule, err := g.gw.LoadPrecision(ctx, symbol)
	if err != nil {
		return model.PrecisionRule{}, err
	}

	g.store(ctx, symbol, rule)
	return rule, nil
}

func (g *Gate) store(ctx context.Context, symbol string, rule model.PrecisionRule) {
	cached := cachedRule{Rule: rule, ExpiresAt: time.Now().Add(g.ttl)}
	g.local.Add(symbol, cached)

	if g.rc == nil {
		return
	}
	bytes, err := json.Marshal(&cached)
	if err != nil {
		return
	}
	if err = g.rc.Set(ctx, consts.PrecisionRuleKeyPrefix+symbol, bytes, g.ttl).Err(); err != nil {
		logger.Errorf("精度规则存储Cache失败:%v", err.Error())
	}
}

// Refresh 后台任务用：主动回源刷新一批交易对的规则
func (g *Gate) Refresh(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		rule, err := g.gw.LoadPrecision(ctx, symbol)
		if err != nil {
			logger.Warnf("刷新精度规则失败 symbol=%s err=%v", symbol, err)
			continue
		}
		g.store(ctx, symbol, rule)
	}
}

// ValidateAndRound 将(价格,数量)对齐到规则并校验下限
// 价格四舍五入到tick，数量向下取整到step。取整是幂等的
func (g *Gate) ValidateAndRound(ctx context.Context, symbol string, price, quantity float64) (float64, float64, error) {
	rule, err := g.GetRule(ctx, symbol)
	if err != nil {
		return 0, 0, err
	}

	roundedPrice := RoundPrice(rule, price)
	roundedQty := RoundQuantity(rule, quantity)

	if rule.MinQuantity > 0 && roundedQty < rule.MinQuantity {
		return 0, 0, errors.WithCode(ecode.BelowMinNotional,
			"quantity %v below minimum %v for %s", roundedQty, rule.MinQuantity, symbol)
	}
	if rule.MinNotional > 0 && roundedPrice*roundedQty < rule.MinNotional {
		return 0, 0, errors.WithCode(ecode.BelowMinNotional,
			"notional %v below minimum %v for %s", roundedPrice*roundedQty, rule.MinNotional, symbol)
	}
	return roundedPrice, roundedQty, nil
}

// RoundPrice 价格对齐到tick，四舍五入
func RoundPrice(rule model.PrecisionRule, price float64) float64 {
	return snap(price, rule.TickSize, false)
}

// RoundQuantity 数量对齐到step，向下取整，保证不超出预算
func RoundQuantity(rule model.PrecisionRule, quantity float64) float64 {
	return snap(quantity, rule.StepSize, true)
}

// 浮点直接取模会引入误差，用decimal做步长对齐
func snap(value, step float64, down bool) float64 {
	if step <= 0 || value <= 0 {
		return value
	}
	v := decimal.NewFromFloat(value)
	s := decimal.NewFromFloat(step)
	q := v.Div(s)
	if down {
		q = q.Floor()
	} else {
		q = q.Round(0)
	}
	f, _ := q.Mul(s).Float64()
	return f
}
