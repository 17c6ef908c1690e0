package exchange

import (
	"context"
	"strings"
	"sync"
	"time"

	"gridflow/internal/exchange/okx"
	"gridflow/internal/model"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"

	"github.com/nntaoli-project/goex/v2/options"
	"github.com/spf13/cast"
)

// OkxGateway 基于okx现货接口的网关实现
type OkxGateway struct {
	spot *okx.OkxSpot
	pub  *okx.PublicClient

	mu          sync.Mutex
	instruments map[string]okx.Instrument // instId -> instrument
	loadedAt    time.Time
}

// 交易对列表整体拉取一次后复用，过期后惰性刷新
const instrumentMaxAge = 30 * time.Minute

func NewOkxGateway(apiKey, apiSecret, passphrase string) (*OkxGateway, error) {
	opts := []options.ApiOption{
		options.WithApiKey(apiKey),
		options.WithApiSecretKey(apiSecret),
		options.WithPassphrase(passphrase),
	}
	spot := okx.NewOkxSpot(opts)
	if err := spot.LoadExchangeInfo(); err != nil {
		return nil, classify(err, "load exchange info failed")
	}
	return &OkxGateway{
		spot:        spot,
		pub:         okx.NewPublicClient(),
		instruments: make(map[string]okx.Instrument),
	}, nil
}

func (g *OkxGateway) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := g.spot.GetLastPrice(symbol)
	if err != nil {
		return 0, classify(err, "get last price failed")
	}
	return price, nil
}

// "BTC/USDT" -> "BTC-USDT"
func toInstId(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}

func (g *OkxGateway) LoadPrecision(ctx context.Context, symbol string) (model.PrecisionRule, error) {
	instId := toInstId(symbol)

	g.mu.Lock()
	inst, ok := g.instruments[instId]
	stale := time.Since(g.loadedAt) > instrumentMaxAge
	g.mu.Unlock()

	if !ok || stale {
		list, err := g.pub.GetInstruments(ctx, "SPOT")
		if err != nil {
			return model.PrecisionRule{}, errors.Wrap(err, ecode.PrecisionUnavailable, "fetch instruments failed")
		}
		g.mu.Lock()
		g.instruments = make(map[string]okx.Instrument, len(list))
		for _, it := range list {
			g.instruments[it.InstId] = it
		}
		g.loadedAt = time.Now()
		inst, ok = g.instruments[instId]
		g.mu.Unlock()
	}

	if !ok || inst.State != "live" {
		return model.PrecisionRule{}, errors.WithCode(ecode.PrecisionUnavailable, "instrument %s not tradable", instId)
	}

	return model.PrecisionRule{
		TickSize:    cast.ToFloat64(inst.TickSz),
		StepSize:    cast.ToFloat64(inst.LotSz),
		MinQuantity: cast.ToFloat64(inst.MinSz),
	}, nil
}

func (g *OkxGateway) PlaceOrder(ctx context.Context, req *OrderRequest) (string, error) {
	orderID, err := g.spot.PlaceOrder(ctx, req.Symbol, req.Side, req.OrderType, req.Price, req.Quantity)
	if err != nil {
		return "", classify(err, "place order failed")
	}
	return orderID, nil
}

func (g *OkxGateway) CancelOrder(ctx context.Context, orderID, symbol string) error {
	if err := g.spot.CancelOrder(orderID, symbol); err != nil {
		return classify(err, "cancel order failed")
	}
	return nil
}

func (g *OkxGateway) GetOrderState(ctx context.Context, orderID, symbol string) (*OrderState, error) {
	info, err := g.spot.GetOrderInfo(orderID, symbol)
	if err != nil {
		return nil, classify(err, "get order info failed")
	}
	return &OrderState{
		OrderID:        info.OrderID,
		Status:         adaptStatus(info),
		FilledQuantity: info.Filled,
		AvgFillPrice:   info.AvgPrice,
	}, nil
}

func adaptStatus(info *okx.OrderInfo) string {
	switch strings.ToLower(info.Status) {
	case "filled", "finished":
		return StateFilled
	case "canceled", "cancelled":
		return StateCancelled
	default:
		if info.Filled > 0 {
			return StatePartiallyFilled
		}
		return StateOpen
	}
}
