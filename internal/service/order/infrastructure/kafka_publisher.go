// internal/service/order/infrastructure/kafka_publisher.go
package infrastructure

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"

	"ordermesh/internal/pkg/mq"
)

// KafkaEventPublisher 按 topic 维护 writer，供 OutboxRelay 使用。
type KafkaEventPublisher struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewKafkaEventPublisher(brokers []string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *KafkaEventPublisher) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.writers[topic]
	if !ok {
		w = mq.NewKafkaWriter(p.brokers, topic)
		p.writers[topic] = w
	}
	return w
}

// Publish 发送一条事件，事件类型放在 header 里供消费端路由。
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic, key string, payload []byte, eventType string) error {
	return mq.ProduceMessage(ctx, p.writer(topic), []byte(key), payload,
		kafka.Header{Key: "event_type", Value: []byte(eventType)})
}

// Close 关闭所有 writer。
func (p *KafkaEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
