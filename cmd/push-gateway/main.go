package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ordermesh/internal/pkg/bootstrap"
	"ordermesh/internal/pkg/redis"
	"ordermesh/internal/pkg/session"
	"ordermesh/internal/service/push"
)

const (
	serviceName = "push-gateway"
	servicePort = 8088
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	// 节点 ID 用于多实例部署下的会话路由
	nodeID := serviceName + "-" + uuid.New().String()[:8]
	sessions := session.NewManager(redisClient)
	hub := push.NewHub(nodeID)
	feed := push.NewStatusFeed(cfg.Infra.Kafka.Brokers, nodeID, hub)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			push.NewHandler(hub, sessions).RegisterRoutes(appCtx.Mux)
		},
		BackgroundTasks: []func(ctx context.Context) error{
			hub.Run,
			feed.Run,
		},
	})
}
