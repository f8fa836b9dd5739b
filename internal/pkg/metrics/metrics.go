// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 订单域的核心业务指标。所有服务共享注册表，通过 /metrics 暴露。
var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermesh_orders_created_total",
		Help: "Number of orders successfully created.",
	})

	OrdersFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermesh_orders_failed_total",
		Help: "Number of order operations rejected, by reason.",
	}, []string{"operation", "reason"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermesh_events_published_total",
		Help: "Number of domain events published to the broker, by topic.",
	}, []string{"topic"})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermesh_events_consumed_total",
		Help: "Number of domain events consumed, by topic and result.",
	}, []string{"topic", "result"})

	StockDecrements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermesh_stock_decrements_total",
		Help: "Number of stock decrement operations applied by the ledger.",
	})

	StockOversold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermesh_stock_oversold_total",
		Help: "Times a decrement drove product stock below zero (needs reconciliation).",
	})

	OutboxLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ordermesh_outbox_pending_events",
		Help: "Outbox rows waiting to be relayed to the broker.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordermesh_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)
