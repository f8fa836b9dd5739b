package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ordermesh/internal/pkg/bootstrap"
	"ordermesh/internal/service/audit"
)

const (
	serviceName = "audit-service"
	servicePort = 8084
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	consumer := audit.NewConsumer(cfg.Infra.Kafka.Brokers)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
		BackgroundTasks: []func(ctx context.Context) error{
			consumer.Run,
		},
	})
}
