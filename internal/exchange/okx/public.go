package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// okx的公开接口，不需要apikey

type PublicClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewPublicClient() *PublicClient {
	return &PublicClient{
		// OKX V5 基础公共 API 地址
		baseURL: "https://www.okx.com/api/v5",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Instrument 对应 OKX API 返回的单个交易对信息
type Instrument struct {
	InstId   string `json:"instId"`   // 交易对 ID (如 BTC-USDT)
	InstType string `json:"instType"` // SPOT/SWAP/FUTURES
	BaseCcy  string `json:"baseCcy"`
	QuoteCcy string `json:"quoteCcy"`
	State    string `json:"state"` // live 表示可交易

	TickSz string `json:"tickSz"` // 价格最小变动
	LotSz  string `json:"lotSz"`  // 数量步长
	MinSz  string `json:"minSz"`  // 最小下单数量
}

// GetInstruments 获取指定类型的全部交易产品
// instType: SPOT, SWAP, FUTURES 等
func (c *PublicClient) GetInstruments(ctx context.Context, instType string) ([]Instrument, error) {
	endpoint := fmt.Sprintf("/public/instruments?instType=%s", instType)

	var instruments []Instrument
	if err := c.doPublicGet(ctx, endpoint, &instruments); err != nil {
		return nil, fmt.Errorf("获取 %s 交易对失败: %w", instType, err)
	}
	return instruments, nil
}

// doPublicGet 执行通用的 GET 请求，处理 JSON 解析和错误
func (c *PublicClient) doPublicGet(ctx context.Context, endpoint string, result interface{}) error {
	url := fmt.Sprintf("%s%s", c.baseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API返回非成功状态码: %d", resp.StatusCode)
	}

	// OKX API 的标准 JSON 格式：{"code":"0", "msg":"", "data":[...]}
	var apiResponse struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return fmt.Errorf("解析API响应JSON失败: %w", err)
	}
	if apiResponse.Code != "0" {
		return fmt.Errorf("OKX API错误, Code: %s, Msg: %s", apiResponse.Code, apiResponse.Msg)
	}
	if err := json.Unmarshal(apiResponse.Data, result); err != nil {
		return fmt.Errorf("解析Data字段失败: %w", err)
	}
	return nil
}
