package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink writes every event to one topic keyed by aggregate id, so events
// of one order land on one partition and keep their order.
type KafkaSink struct {
	w *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("kafka sink: brokers and topic are required")
	}
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            5,
			WriteTimeout:           5 * time.Second,
			ReadTimeout:            5 * time.Second,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (s *KafkaSink) Send(ctx context.Context, m Message) error {
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.Key),
		Value: m.Body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(m.Name)},
			{Key: "message_id", Value: []byte(m.ID)},
		},
		Time: time.Now(),
	})
}

func (s *KafkaSink) Close() error { return s.w.Close() }
