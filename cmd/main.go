package main

import (
	"fmt"
	"log"
	"os"

	api "gridflow/cmd/gridflow"
	"gridflow/conf"
	"gridflow/internal/middleware"
	"gridflow/pkg/cache"
	"gridflow/pkg/db"
	"gridflow/pkg/logger"

	goex "github.com/nntaoli-project/goex/v2"
)

// 启动服务（监听webhook）

/*
测试

BODY='{"secret":"ab12cd34ef56","tv":{"exchange":"OKX","symbol":"BTC/USDT","timeframe":"1h","price":113990},"execution_intent":{"action":"buy","type":"signal"}}'

curl -X POST http://localhost:12180/api/v1/webhook \
  -H "Content-Type: application/json" \
  -d "$BODY"
*/

func main() {

	// 加载配置文件
	err := conf.LoadConfig("conf/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appCfg := conf.AppConfig
	logger.Init(appCfg.Log)
	defer logger.Sync()

	if appCfg.Okx.Simulated {
		// 设置为模拟环境
		goex.DefaultHttpCli.SetHeaders("x-simulated-trading", "1")
	}

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")
	if dbUser != "" && dbPass != "" && dbHost != "" {
		appCfg.Db = conf.Db{
			DbName:   dbName,
			Host:     dbHost,
			Port:     dbPort,
			Username: dbUser,
			Password: dbPass,
		}
	}

	// 初始化数据库
	datasource := db.Init(appCfg.Db)

	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	if redisHost != "" && redisPort != "" {
		appCfg.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}
	if redisPassword != "" {
		appCfg.Redis.Password = redisPassword
	}

	// 初始化redis缓存
	cache.InitRedis(appCfg.Redis)

	// 创建并启动服务
	srv := api.NewServer(&appCfg)
	srv.RegisterOnShutdown(func() {
		if datasource != nil {
			m, err := datasource.DB()
			if err == nil {
				_ = m.Close()
			}
		}
		cache.CloseRedis()
	})
	srvRouter := api.InitRouter(datasource)

	srv.Run(middleware.NewMiddleware(), srvRouter)
}
