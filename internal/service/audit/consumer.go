// internal/service/audit/consumer.go
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/pkg/metrics"
	"ordermesh/internal/pkg/mq"
)

const consumerGroupID = "audit-trail"

var auditedTopics = []string{
	"orders.created",
	"orders.status.updated",
	"orders.cancelled",
}

// Consumer 订阅全部订单事件并落一条结构化审计日志。
// 审计流是旁路消费组，不影响库存台账的 offset。
type Consumer struct {
	brokers []string
	tracer  trace.Tracer
}

func NewConsumer(brokers []string) *Consumer {
	return &Consumer{brokers: brokers, tracer: otel.Tracer("audit-service")}
}

// Run 为每个 topic 启动一个消费循环，阻塞到 ctx 取消。
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, topic := range auditedTopics {
		topic := topic
		g.Go(func() error { return c.consume(ctx, topic) })
	}
	return g.Wait()
}

func (c *Consumer) consume(ctx context.Context, topic string) error {
	reader := mq.NewKafkaReader(c.brokers, topic, consumerGroupID)
	defer reader.Close()

	logger.Ctx(ctx).Info().Str("topic", topic).Msg("audit consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("fetch message failed, retrying")
			select {
			case <-time.After(5 * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		carrier := mq.KafkaHeaderCarrier(msg.Headers)
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, &carrier)
		msgCtx, span := c.tracer.Start(msgCtx, "audit "+topic)
		c.record(msgCtx, topic, msg.Value)
		span.End()

		metrics.EventsConsumed.WithLabelValues(topic, "ok").Inc()
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("offset commit failed")
		}
	}
}

// entry 是审计日志关心的事件字段，载荷其余部分原样带出。
type entry struct {
	EventID        string    `json:"eventId"`
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	CustomerID     string    `json:"customerId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         string    `json:"reason"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func (c *Consumer) record(ctx context.Context, topic string, payload []byte) {
	var e entry
	if err := json.Unmarshal(payload, &e); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("unparseable event payload in audit stream")
		return
	}

	evt := logger.Ctx(ctx).Info().
		Str("audit", "order-event").
		Str("topic", topic).
		Str("event_id", e.EventID).
		Str("order_id", e.OrderID).
		Str("customer_id", e.CustomerID).
		Time("occurred_at", e.OccurredAt)
	if e.OrderNumber != "" {
		evt = evt.Str("order_number", e.OrderNumber)
	}
	if e.NewStatus != "" {
		evt = evt.Str("previous_status", e.PreviousStatus).Str("new_status", e.NewStatus)
	}
	if e.Reason != "" {
		evt = evt.Str("reason", e.Reason)
	}
	evt.Msg("order event audited")
}
