package api

import (
	"context"

	"gridflow/conf"
	"gridflow/internal/dao"
	"gridflow/internal/exchange"
	"gridflow/internal/grid"
	grouphandler "gridflow/internal/handler/group"
	queuehandler "gridflow/internal/handler/queue"
	riskhandler "gridflow/internal/handler/risk"
	webhookhandler "gridflow/internal/handler/webhook"
	"gridflow/internal/ledger"
	"gridflow/internal/pool"
	"gridflow/internal/precision"
	"gridflow/internal/queue"
	"gridflow/internal/risk"
	"gridflow/internal/router"
	"gridflow/internal/scheduler"
	"gridflow/internal/signal"
	"gridflow/internal/takeprofit"
	"gridflow/internal/webhook"
	"gridflow/pkg/cache"
	"gridflow/pkg/kafka"
	"gridflow/pkg/logger"

	"gorm.io/gorm"
)

func InitRouter(db *gorm.DB) Router {
	appCfg := conf.AppConfig

	groupDao := dao.NewGroupDao(db)
	pyramidDao := dao.NewPyramidDao(db)
	orderDao := dao.NewOrderDao(db)
	queueDao := dao.NewQueueDao(db)
	actionDao := dao.NewRiskActionDao(db)
	logDao := dao.NewWebhookLogDao(db)

	// 网关：模拟盘走内存撮合，实盘走okx
	var gw exchange.Gateway
	if appCfg.Okx.Simulated {
		gw = exchange.NewSimulatedGateway()
	} else {
		okxGw, err := exchange.NewOkxGateway(appCfg.Okx.ApiKey, appCfg.Okx.SecretKey, appCfg.Okx.Password)
		if err != nil {
			logger.Fatalf("init okx gateway failed: %v", err)
		}
		gw = okxGw
	}

	gate, err := precision.NewGate(gw, cache.GetRedisClient(), appCfg.Precision.LocalSize, appCfg.Precision.CacheTTL)
	if err != nil {
		logger.Fatalf("init precision gate failed: %v", err)
	}

	planner := grid.NewPlanner(appCfg.DCA)
	if err := planner.Validate(); err != nil {
		logger.Fatalf("dca config invalid: %v", err)
	}

	var producer kafka.ProducerService = kafka.NopProducer{}
	if appCfg.Kafka.Broker != "" {
		producer = kafka.NewKafkaProducer(appCfg.Kafka.Broker, appCfg.Kafka.Topic)
	}

	lg := ledger.New(groupDao, pyramidDao, orderDao, gate, planner, gw, producer,
		appCfg.DCA, appCfg.TakeProfit, appCfg.Risk)

	admission := pool.NewAdmission(appCfg.Pool, groupDao)
	waiting := queue.New(queueDao, appCfg.Risk)

	tpEngine := takeprofit.NewEngine(groupDao, orderDao, lg, gw)
	riskEngine := risk.NewEngine(appCfg.Risk, groupDao, actionDao, lg, producer)

	svc := signal.NewService(admission, waiting, lg, groupDao)
	receiver := webhook.NewReceiver(svc, logDao, appCfg.Webhook.Secret)

	wh := webhookhandler.NewHandler(receiver)
	gh := grouphandler.NewHandler(groupDao, pyramidDao, orderDao, lg, svc)
	qh := queuehandler.NewHandler(waiting, svc)
	rh := riskhandler.NewHandler(actionDao, groupDao, riskEngine, svc)

	apiRouter := router.NewApiRouter(wh, gh, qh, rh)

	// 后台任务：对账、止盈、风控、精度刷新
	sched := scheduler.New(appCfg.Scheduler, lg, tpEngine, riskEngine, svc, groupDao, gate)
	sched.Start(context.Background())

	return apiRouter
}
