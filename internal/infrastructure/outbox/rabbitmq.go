package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitSink publishes to a durable topic exchange with the event name as routing key.
type RabbitSink struct {
	conn     *amqp.Connection
	mu       sync.Mutex // amqp channels are not safe for concurrent publishes
	ch       *amqp.Channel
	exchange string
}

func NewRabbitSink(url, exchange string) (*RabbitSink, error) {
	if url == "" || exchange == "" {
		return nil, errors.New("rabbitmq sink: url and exchange are required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq sink: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq sink: channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq sink: declare %s: %w", exchange, err)
	}
	return &RabbitSink{conn: conn, ch: ch, exchange: exchange}, nil
}

func (s *RabbitSink) Send(ctx context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.PublishWithContext(ctx,
		s.exchange,
		m.Name,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     m.ID,
			CorrelationId: m.Key,
			Type:          m.Name,
			Timestamp:     time.Now().UTC(),
			Body:          m.Body,
		},
	)
}

func (s *RabbitSink) Close() error {
	return errors.Join(s.ch.Close(), s.conn.Close())
}
