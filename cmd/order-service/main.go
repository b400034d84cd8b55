// cmd/order-service/main.go
package main

import (
	"context"
	"time"

	"mercury/internal/pkg/bootstrap"
	"mercury/internal/pkg/httpclient"
	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/mq"
	"mercury/internal/pkg/redis"
	"mercury/internal/service/order/application"
	"mercury/internal/service/order/infrastructure"
	"mercury/internal/service/order/infrastructure/adapter"
	"mercury/internal/service/order/interfaces"
)

const (
	serviceName     = "order-service"
	servicePort     = 8081
	orderEventTopic = "order-events"
)

// main 是组装根：创建并装配所有依赖，然后启动服务。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	repo, err := infrastructure.NewGormOrderRepository(cfg.Infra.MysqlDSN)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize order repository")
	}

	redisClient, err := redis.NewClient(cfg.Infra.RedisAddrs)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize redis client")
	}
	cache := infrastructure.NewRedisOrderCache(redisClient)

	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.KafkaBrokers, orderEventTopic)
	events := infrastructure.NewOrderEventKafkaProducer(kafkaWriter)

	httpClient := httpclient.NewClient(serviceName, time.Duration(cfg.App.CallTimeoutSec)*time.Second)
	inventory := adapter.NewInventoryHTTPAdapter(httpClient, cfg.Services.InventoryBaseURL, cfg.App.ReserveMaxAttempts)

	rules, err := adapter.NewCelRuleEngine(cfg.App.OrderRule)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid order acceptance rule")
	}

	service := application.NewOrderApplicationService(repo, inventory, rules, events, cache)
	handler := interfaces.NewOrderHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := kafkaWriter.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("error closing kafka writer")
			}
			if err := redisClient.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("error closing redis client")
			}
		},
	})
}
