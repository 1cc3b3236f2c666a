package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher is a thin wrapper around segmentio/kafka-go Writer, bound to one
// topic. Messages are keyed by aggregate id so one aggregate's events land
// on one partition.
type Publisher struct {
	w *kafka.Writer
}

func NewPublisher(brokers []string, topic string, writeTimeout time.Duration) *Publisher {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{w: w}
}

func (p *Publisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
}

func (p *Publisher) Close() error { return p.w.Close() }
