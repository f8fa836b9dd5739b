// internal/service/order/infrastructure/outbox_relay.go
package infrastructure

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"ordermesh/internal/pkg/metrics"
)

// OutboxStore 是 relay 依赖的最小存储接口，便于测试替换。
type OutboxStore interface {
	FetchPendingOutbox(ctx context.Context, limit int) ([]OutboxModel, error)
	MarkOutboxSent(ctx context.Context, id uint64) error
	CountPendingOutbox(ctx context.Context) (int64, error)
}

// EventPublisher 把一条已序列化的事件发到 broker。
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte, eventType string) error
}

// OutboxRelay 周期性地把 outbox 里未发送的事件发布到 Kafka。
// 单条发布失败只跳过该条，下一轮重试；只有发布成功才标记 sent_at，
// 因此事件至少送达一次，消费端需要幂等。
type OutboxRelay struct {
	store     OutboxStore
	publisher EventPublisher
	tick      time.Duration
	batchSize int
}

func NewOutboxRelay(store OutboxStore, publisher EventPublisher) *OutboxRelay {
	return &OutboxRelay{
		store:     store,
		publisher: publisher,
		tick:      time.Second,
		batchSize: 100,
	}
}

// Run 启动轮询循环，ctx 取消后返回。
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	log.Info().Dur("tick", r.tick).Msg("outbox relay started")
	for {
		select {
		case <-ticker.C:
			r.relayPending(ctx)
		case <-ctx.Done():
			log.Info().Msg("outbox relay stopped")
			return nil
		}
	}
}

func (r *OutboxRelay) relayPending(ctx context.Context) {
	rows, err := r.store.FetchPendingOutbox(ctx, r.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch pending outbox rows")
		return
	}

	for _, row := range rows {
		if err := r.publisher.Publish(ctx, row.Topic, row.MsgKey, row.Payload, row.EventType); err != nil {
			log.Error().Err(err).
				Uint64("outbox_id", row.ID).
				Str("event_id", row.EventID).
				Msg("failed to publish outbox event, will retry next tick")
			continue
		}
		if err := r.store.MarkOutboxSent(ctx, row.ID); err != nil {
			// 标记失败意味着下一轮会重发，靠消费端幂等兜底
			log.Error().Err(err).
				Uint64("outbox_id", row.ID).
				Msg("failed to mark outbox event as sent")
			continue
		}
		metrics.EventsPublished.WithLabelValues(row.Topic).Inc()
	}

	if pending, err := r.store.CountPendingOutbox(ctx); err == nil {
		metrics.OutboxLag.Set(float64(pending))
	}
}
