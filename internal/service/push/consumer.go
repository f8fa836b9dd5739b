// internal/service/push/consumer.go
package push

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/pkg/metrics"
	"ordermesh/internal/pkg/mq"
)

const statusTopic = "orders.status.updated"

// statusUpdate 是推送给客户端的载荷，来自订单状态事件。
type statusUpdate struct {
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	CustomerID     string    `json:"customerId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// StatusFeed 消费订单状态事件并推送给在线的客户。
// 每个网关节点用自己的消费组订阅全量事件，非本节点客户的消息直接跳过，
// 会话映射保证同一客户只会收到一份推送。
type StatusFeed struct {
	brokers []string
	nodeID  string
	hub     *Hub
	tracer  trace.Tracer
}

func NewStatusFeed(brokers []string, nodeID string, hub *Hub) *StatusFeed {
	return &StatusFeed{
		brokers: brokers,
		nodeID:  nodeID,
		hub:     hub,
		tracer:  otel.Tracer("push-gateway"),
	}
}

// Run 启动消费循环，阻塞到 ctx 取消。
func (f *StatusFeed) Run(ctx context.Context) error {
	reader := mq.NewKafkaReader(f.brokers, statusTopic, "push-gateway-"+f.nodeID)
	defer reader.Close()

	logger.Ctx(ctx).Info().Str("node_id", f.nodeID).Msg("push status feed started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Ctx(ctx).Error().Err(err).Msg("fetch message failed, retrying")
			select {
			case <-time.After(5 * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		carrier := mq.KafkaHeaderCarrier(msg.Headers)
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, &carrier)
		msgCtx, span := f.tracer.Start(msgCtx, "push "+statusTopic)
		f.dispatch(msgCtx, msg.Value)
		span.End()

		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("offset commit failed")
		}
	}
}

func (f *StatusFeed) dispatch(ctx context.Context, payload []byte) {
	var update statusUpdate
	if err := json.Unmarshal(payload, &update); err != nil || update.CustomerID == "" {
		logger.Ctx(ctx).Warn().Err(err).Msg("unparseable status event in push feed")
		metrics.EventsConsumed.WithLabelValues(statusTopic, "malformed").Inc()
		return
	}

	body, err := json.Marshal(update)
	if err != nil {
		return
	}

	if f.hub.Send(update.CustomerID, body) {
		metrics.EventsConsumed.WithLabelValues(statusTopic, "pushed").Inc()
		logger.Ctx(ctx).Debug().
			Str("customer_id", update.CustomerID).
			Str("order_id", update.OrderID).
			Str("new_status", update.NewStatus).
			Msg("status update pushed")
		return
	}
	metrics.EventsConsumed.WithLabelValues(statusTopic, "skipped").Inc()
}
