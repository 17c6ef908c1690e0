package okx

import (
	"context"
	"errors"
	"strings"

	goexv2 "github.com/nntaoli-project/goex/v2"
	"github.com/nntaoli-project/goex/v2/model"
	"github.com/nntaoli-project/goex/v2/okx/spot"
	"github.com/nntaoli-project/goex/v2/options"
)

// 现货封装，挂单梯子只用限价单和市价单
type OkxSpot struct {
	prv goexv2.IPrvRest
	pub spot.Spot
}

func NewOkxSpot(conf []options.ApiOption) *OkxSpot {
	pub := goexv2.OKx.Spot
	return &OkxSpot{
		prv: pub.NewPrvApi(conf...),
		pub: *pub,
	}
}

// symbol 格式转换: "BTC/USDT" -> goex 需要的 CurrencyPair
func (e *OkxSpot) toCurrencyPair(symbol string) (model.CurrencyPair, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) == 1 {
		parts = strings.Split(symbol, "-")
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	if len(parts) < 2 {
		return model.CurrencyPair{}, errors.New("invalid symbol format, expected like BTC/USDT")
	}
	return e.pub.NewCurrencyPair(parts[0], parts[1])
}

// 初始化时加载所有可交易币对，创建订单时goex需要pair信息
func (e *OkxSpot) LoadExchangeInfo() error {
	_, _, err := e.pub.GetExchangeInfo()
	return err
}

// 获取最新价格
func (e *OkxSpot) GetLastPrice(symbol string) (float64, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return 0, err
	}
	ticker, _, err := e.pub.GetTicker(pair)
	if err != nil {
		return 0, err
	}
	if ticker == nil {
		return 0, errors.New("failed to get ticker")
	}
	return ticker.Last, nil
}

// 下单
// quantity统一为币本身数量。okx市价买单的sz默认按计价货币计数，
// 这里通过tgtCcy=base_ccy强制按币数量，平空头时才不会把数量当成USDT
func (e *OkxSpot) PlaceOrder(ctx context.Context, symbol, side, orderType string, price, quantity float64) (string, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return "", err
	}

	var goexSide model.OrderSide
	switch strings.ToLower(side) {
	case "buy":
		goexSide = model.Spot_Buy
	case "sell":
		goexSide = model.Spot_Sell
	default:
		return "", errors.New("invalid order side")
	}

	goexType := model.OrderType_Limit
	var opts []model.OptionParameter
	if orderType == "market" {
		goexType = model.OrderType_Market
		opts = append(opts, model.OptionParameter{Key: "tgtCcy", Value: "base_ccy"})
	}

	createdOrder, _, err := e.prv.CreateOrder(pair, quantity, price, goexSide, goexType, opts...)
	if err != nil {
		return "", err
	}
	return createdOrder.Id, nil
}

// 取消订单
func (e *OkxSpot) CancelOrder(orderID, symbol string) error {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return err
	}
	_, err = e.prv.CancelOrder(pair, orderID)
	return err
}

// OrderInfo 订单查询结果
type OrderInfo struct {
	OrderID  string
	Status   string
	Filled   float64
	AvgPrice float64
	Qty      float64
}

// 获取订单状态
func (e *OkxSpot) GetOrderInfo(orderID, symbol string) (*OrderInfo, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}
	info, _, err := e.prv.GetOrderInfo(pair, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderInfo{
		OrderID:  info.Id,
		Status:   info.Status.String(),
		Filled:   info.ExecutedQty,
		AvgPrice: info.PriceAvg,
		Qty:      info.Qty,
	}, nil
}
