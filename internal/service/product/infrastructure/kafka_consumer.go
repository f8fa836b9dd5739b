// internal/service/product/infrastructure/kafka_consumer.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/pkg/metrics"
	"ordermesh/internal/pkg/mq"
	"ordermesh/internal/service/product/application"
)

// IdempotencyGuard 是消费端去重的最小接口，redis.Client 满足它。
type IdempotencyGuard interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

const (
	topicOrderCreated   = "orders.created"
	topicOrderCancelled = "orders.cancelled"

	consumerGroupID = "product-stock-ledger"

	maxHandleAttempts = 3
	retryBackoff      = time.Second

	// 幂等标记的保留期，覆盖消费组可能的重放窗口。
	idempotencyTTL = 7 * 24 * time.Hour
)

// StockLedgerConsumer 消费订单事件并驱动库存台账。
// orders.created 扣减库存，orders.cancelled 回补库存。
// 每条消息处理成功（或进入死信）后才提交 offset，保证至少一次；
// 重复投递由 Redis 幂等标记吸收。
type StockLedgerConsumer struct {
	brokers []string
	service *application.ProductApplicationService
	guard   IdempotencyGuard
	tracer  trace.Tracer
}

func NewStockLedgerConsumer(brokers []string, service *application.ProductApplicationService, guard IdempotencyGuard) *StockLedgerConsumer {
	return &StockLedgerConsumer{
		brokers: brokers,
		service: service,
		guard:   guard,
		tracer:  otel.Tracer("product-service"),
	}
}

// Run 启动两个 topic 的消费循环，阻塞到 ctx 取消。
// broker 不可达时 Reader 会在内部重连，服务保持降级运行，HTTP 查询不受影响。
func (c *StockLedgerConsumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.consume(ctx, topicOrderCreated, c.handleCreated) })
	g.Go(func() error { return c.consume(ctx, topicOrderCancelled, c.handleCancelled) })
	return g.Wait()
}

type handlerFunc func(ctx context.Context, payload []byte) (eventID string, err error)

func (c *StockLedgerConsumer) consume(ctx context.Context, topic string, handle handlerFunc) error {
	reader := mq.NewKafkaReader(c.brokers, topic, consumerGroupID)
	defer reader.Close()

	dlq := mq.NewKafkaWriter(c.brokers, topic+".dlq")
	defer dlq.Close()

	logger.Ctx(ctx).Info().Str("topic", topic).Msg("stock ledger consumer started")

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

		c.process(ctx, reader, dlq, topic, msg, handle)
	}
}

// process 处理单条消息并提交 offset。所有失败路径最终都会提交，
// 消费组不会卡在毒消息上。
func (c *StockLedgerConsumer) process(ctx context.Context, reader *kafka.Reader, dlq *kafka.Writer, topic string, msg kafka.Message, handle handlerFunc) {
	carrier := mq.KafkaHeaderCarrier(msg.Headers)
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, &carrier)
	msgCtx, span := c.tracer.Start(msgCtx, "consume "+topic)
	defer span.End()

	var handleErr error
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		var eventID string
		eventID, handleErr = handle(msgCtx, msg.Value)
		if handleErr == nil {
			metrics.EventsConsumed.WithLabelValues(topic, "ok").Inc()
			c.commit(ctx, reader, msg, topic)
			return
		}
		if handleErr == errDuplicateEvent {
			metrics.EventsConsumed.WithLabelValues(topic, "duplicate").Inc()
			c.commit(ctx, reader, msg, topic)
			return
		}
		if handleErr == errMalformedPayload {
			// 格式问题重试也无济于事，直接进死信
			break
		}
		logger.Ctx(msgCtx).Warn().Err(handleErr).
			Str("topic", topic).
			Str("event_id", eventID).
			Int("attempt", attempt).
			Msg("event handling failed")
		if attempt < maxHandleAttempts {
			select {
			case <-time.After(time.Duration(attempt) * retryBackoff):
			case <-ctx.Done():
				return
			}
		}
	}

	metrics.EventsConsumed.WithLabelValues(topic, "deadletter").Inc()
	logger.Ctx(msgCtx).Error().Err(handleErr).
		Str("topic", topic).
		Msg("event moved to dead letter topic")
	if err := mq.ProduceMessage(msgCtx, dlq, msg.Key, msg.Value); err != nil {
		logger.Ctx(msgCtx).Error().Err(err).Str("topic", topic).Msg("dead letter publish failed, message will be redelivered")
		return // 不提交，等待重投
	}
	c.commit(ctx, reader, msg, topic)
}

func (c *StockLedgerConsumer) commit(ctx context.Context, reader *kafka.Reader, msg kafka.Message, topic string) {
	if err := reader.CommitMessages(ctx, msg); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("offset commit failed")
	}
}

var (
	errDuplicateEvent   = duplicateEventError{}
	errMalformedPayload = malformedPayloadError{}
)

type duplicateEventError struct{}

func (duplicateEventError) Error() string { return "duplicate event" }

type malformedPayloadError struct{}

func (malformedPayloadError) Error() string { return "malformed event payload" }

func (c *StockLedgerConsumer) handleCreated(ctx context.Context, payload []byte) (string, error) {
	var msg application.OrderCreatedMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.EventID == "" {
		return "", errMalformedPayload
	}
	if err := c.claim(ctx, msg.EventID); err != nil {
		return msg.EventID, err
	}
	if err := c.service.ApplyOrderCreated(ctx, msg); err != nil {
		c.release(ctx, msg.EventID)
		return msg.EventID, err
	}
	return msg.EventID, nil
}

func (c *StockLedgerConsumer) handleCancelled(ctx context.Context, payload []byte) (string, error) {
	var msg application.OrderCancelledMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.EventID == "" {
		return "", errMalformedPayload
	}
	if err := c.claim(ctx, msg.EventID); err != nil {
		return msg.EventID, err
	}
	if err := c.service.ApplyOrderCancelled(ctx, msg); err != nil {
		c.release(ctx, msg.EventID)
		return msg.EventID, err
	}
	return msg.EventID, nil
}

// claim 用 SETNX 抢占事件的处理权。Redis 不可用时放行：
// 宁可冒重复扣减的风险也不能停摆台账（扣减本身可被对账修正）。
func (c *StockLedgerConsumer) claim(ctx context.Context, eventID string) error {
	first, err := c.guard.SetNX(ctx, idempotencyKey(eventID), "1", idempotencyTTL)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("event_id", eventID).Msg("idempotency guard unavailable, proceeding without it")
		return nil
	}
	if !first {
		return errDuplicateEvent
	}
	return nil
}

// release 回滚幂等标记，让失败的事件可以被重试。
func (c *StockLedgerConsumer) release(ctx context.Context, eventID string) {
	if err := c.guard.Del(ctx, idempotencyKey(eventID)); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("event_id", eventID).Msg("failed to release idempotency marker")
	}
}

func idempotencyKey(eventID string) string {
	return "stock:ledger:event:" + eventID
}
