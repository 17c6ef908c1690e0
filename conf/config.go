package conf

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 配置加载（交易所密钥、资金池、风控参数等）

type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

type Okx struct {
	ApiKey    string `yaml:"apiKey"`
	SecretKey string `yaml:"secretKey"`
	Password  string `yaml:"password"`
	Simulated bool   `yaml:"simulated"`
}

type Db struct {
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PoolConfig 执行池配置，限制单个用户同时持有的仓位组数量
type PoolConfig struct {
	MaxOpenGroups int `yaml:"max-open-groups"` // 并发仓位组上限，>=1
	// 金字塔和DCA腿是否占用池位。默认false：只统计仓位组本身
	CountPyramids bool `yaml:"count-pyramids"`
}

// DCAConfig 网格配置，描述一个金字塔的DCA挂单梯子
type DCAConfig struct {
	Levels       int       `yaml:"levels"`         // DCA层数
	PriceGaps    []float64 `yaml:"price-gaps"`     // 每层距离入场价的跌幅（小数，0.01 = 1%）
	Weights      []float64 `yaml:"weights"`        // 每层资金权重，总和应为1.0
	TPPercent    float64   `yaml:"tp-percent"`     // 每层的止盈百分比（小数）
	TotalRiskUSD float64   `yaml:"total-risk-usd"` // 单个金字塔投入的总资金
	MaxPyramids  int       `yaml:"max-pyramids"`   // 单个仓位组的金字塔上限
}

// TakeProfitConfig 止盈引擎配置
type TakeProfitConfig struct {
	Mode                string  `yaml:"mode"`                  // per_leg / aggregate / hybrid
	AggregatePercent    float64 `yaml:"aggregate-percent"`     // 聚合止盈触发百分比，和unrealized_pnl_percent同口径（5.0 = 5%）
	PartialClosePercent float64 `yaml:"partial-close-percent"` // hybrid模式下平掉的比例 (0~1)
}

// RiskConfig 风险引擎配置
type RiskConfig struct {
	LossThresholdPercent float64 `yaml:"loss-threshold-percent"` // 激活阈值，负数，如 -5.0
	RequireFullPyramids  bool    `yaml:"require-full-pyramids"`  // 是否要求金字塔满仓后才激活
	PostFullWaitMinutes  int     `yaml:"post-full-wait-minutes"` // 满仓后的等待时间（分钟）
	MaxWinnersToCombine  int     `yaml:"max-winners-to-combine"` // 单次对冲最多使用几个盈利仓位
	ContinuationBonus    float64 `yaml:"continuation-bonus"`     // 队列优先级：亏损续仓信号的加分
	LossWeight           float64 `yaml:"loss-weight"`            // 队列优先级：每1%亏损的权重
}

// PrecisionConfig 交易所精度缓存配置
type PrecisionConfig struct {
	CacheTTL  time.Duration `yaml:"cache-ttl"`  // 精度规则缓存有效期，默认3600s
	LocalSize int           `yaml:"local-size"` // 本地LRU缓存容量
}

// SchedulerConfig 后台轮询任务的间隔
type SchedulerConfig struct {
	FillInterval      time.Duration `yaml:"fill-interval"`      // 订单成交对账
	TPInterval        time.Duration `yaml:"tp-interval"`        // 止盈检查
	RiskInterval      time.Duration `yaml:"risk-interval"`      // 风险评估
	PrecisionInterval time.Duration `yaml:"precision-interval"` // 精度缓存刷新
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
	IdleTimeout  int    `yaml:"idle-timeout"`
}

type JwtConfig struct {
	Secret string `yaml:"secret"`
	JwtTtl int64  `yaml:"ttl"` // token 有效期（秒）
}

type KafkaConfig struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"` // 执行事件流的topic
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	Language     string `yaml:"language"`
	MaxPingCount int    `yaml:"max-ping-count"`

	Webhook    WebhookConfig `yaml:"webhook"`
	Okx        `yaml:"okx"`
	Db         `yaml:"database"`
	Pool       PoolConfig       `yaml:"pool"`
	DCA        DCAConfig        `yaml:"dca"`
	TakeProfit TakeProfitConfig `yaml:"take-profit"`
	Risk       RiskConfig       `yaml:"risk"`
	Precision  PrecisionConfig  `yaml:"precision"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Log        LogConfig        `yaml:"log"`
	Jwt        JwtConfig        `yaml:"jwt"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	if err := yaml.Unmarshal(data, &AppConfig); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	applyDefaults(&AppConfig)
	return nil
}

func applyDefaults(c *Config) {
	if c.Pool.MaxOpenGroups <= 0 {
		c.Pool.MaxOpenGroups = 10
	}
	if c.DCA.MaxPyramids <= 0 {
		c.DCA.MaxPyramids = 5
	}
	if c.Risk.MaxWinnersToCombine <= 0 {
		c.Risk.MaxWinnersToCombine = 3
	}
	if c.Risk.LossThresholdPercent == 0 {
		c.Risk.LossThresholdPercent = -5.0
	}
	if c.Risk.ContinuationBonus == 0 {
		c.Risk.ContinuationBonus = 50
	}
	if c.Risk.LossWeight == 0 {
		c.Risk.LossWeight = 10
	}
	if c.Precision.CacheTTL <= 0 {
		c.Precision.CacheTTL = time.Hour
	}
	if c.Precision.LocalSize <= 0 {
		c.Precision.LocalSize = 256
	}
	if c.Scheduler.FillInterval <= 0 {
		c.Scheduler.FillInterval = 10 * time.Second
	}
	if c.Scheduler.TPInterval <= 0 {
		c.Scheduler.TPInterval = 15 * time.Second
	}
	if c.Scheduler.RiskInterval <= 0 {
		c.Scheduler.RiskInterval = 30 * time.Second
	}
	if c.Scheduler.PrecisionInterval <= 0 {
		c.Scheduler.PrecisionInterval = 5 * time.Minute
	}
}
