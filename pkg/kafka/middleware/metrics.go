package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"roombook/pkg/kafka"
)

// Metrics counts Kafka traffic. Counters are updated atomically.
type Metrics struct {
	messagesPublished       atomic.Int64
	messagesPublishedFailed atomic.Int64
	publishDurationTotal    atomic.Int64 // Nanoseconds

	messagesConsumed       atomic.Int64
	messagesConsumedFailed atomic.Int64
	consumeDurationTotal   atomic.Int64 // Nanoseconds
}

type Snapshot struct {
	MessagesPublished       int64   `json:"messages_published"`
	MessagesPublishedFailed int64   `json:"messages_published_failed"`
	AvgPublishDurationMs    float64 `json:"avg_publish_duration_ms"`
	MessagesConsumed        int64   `json:"messages_consumed"`
	MessagesConsumedFailed  int64   `json:"messages_consumed_failed"`
	AvgConsumeDurationMs    float64 `json:"avg_consume_duration_ms"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Reset() {
	m.messagesPublished.Store(0)
	m.messagesPublishedFailed.Store(0)
	m.publishDurationTotal.Store(0)
	m.messagesConsumed.Store(0)
	m.messagesConsumedFailed.Store(0)
	m.consumeDurationTotal.Store(0)
}

func (m *Metrics) Snapshot() Snapshot {
	published := m.messagesPublished.Load()
	consumed := m.messagesConsumed.Load()
	return Snapshot{
		MessagesPublished:       published,
		MessagesPublishedFailed: m.messagesPublishedFailed.Load(),
		AvgPublishDurationMs:    avgMillis(m.publishDurationTotal.Load(), published),
		MessagesConsumed:        consumed,
		MessagesConsumedFailed:  m.messagesConsumedFailed.Load(),
		AvgConsumeDurationMs:    avgMillis(m.consumeDurationTotal.Load(), consumed),
	}
}

func avgMillis(totalNanos, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(time.Duration(totalNanos/count)) / float64(time.Millisecond)
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.publishDurationTotal.Add(int64(time.Since(start)))

		if err != nil {
			m.messagesPublishedFailed.Add(1)
		} else {
			m.messagesPublished.Add(1)
		}
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.consumeDurationTotal.Add(int64(time.Since(start)))

		if err != nil {
			m.messagesConsumedFailed.Add(1)
		} else {
			m.messagesConsumed.Add(1)
		}
		return err
	}
}
