// cmd/inventory-service/main.go
package main

import (
	"context"
	"time"

	"mercury/internal/pkg/bootstrap"
	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/redis"
	"mercury/internal/service/inventory/application"
	"mercury/internal/service/inventory/domain"
	"mercury/internal/service/inventory/domain/port"
	"mercury/internal/service/inventory/infrastructure"
	"mercury/internal/service/inventory/interfaces"
	"mercury/internal/zookeeper"
)

const (
	serviceName = "inventory-service"
	servicePort = 8082
)

// main 是组装根：创建并装配所有依赖，然后启动服务。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	var repo domain.ProductRepository
	gormRepo, err := infrastructure.NewGormProductRepository(cfg.Infra.MysqlDSN)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize product repository")
	}
	repo = gormRepo

	// Redis 可用时给令牌重放加一条快路径，连不上不影响正确性
	rdb, err := redis.NewClient(cfg.Infra.RedisAddrs)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("redis unavailable, reservation replay goes to mysql")
	} else {
		repo = infrastructure.NewCachedProductRepository(gormRepo, rdb)
	}

	// 多实例部署时用 ZooKeeper 串行化同一商品的库存操作，
	// 单实例用进程内互斥锁即可
	var locks port.LockManager
	if cfg.Infra.Zookeeper.Enabled {
		conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Addrs, 5*time.Second)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		locks = infrastructure.NewZkLockManager(conn)
	} else {
		locks = infrastructure.NewLocalLockManager()
	}

	service := application.NewService(repo, locks)
	handler := interfaces.NewHTTPHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if rdb != nil {
				_ = rdb.Close()
			}
		},
	})
}
