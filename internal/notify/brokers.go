package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// RedisChannel carries intents between service instances.
const RedisChannel = "booking:intents"

// RedisSink publishes intents on a redis channel. Every instance relays that
// channel to its own websocket clients.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, in Intent) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, RedisChannel, body).Err()
}

const (
	ExchangeName = "booking"
	ExchangeType = "topic"
	QueueNotify  = "booking.notifications"
)

// AMQPSink publishes intents to a durable RabbitMQ queue for the delivery
// service (email, push).
type AMQPSink struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPSink(url string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueNotify, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare notifications queue: %w", err)
	}
	if err := ch.QueueBind(QueueNotify, "intent.*", ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind notifications queue: %w", err)
	}

	log.Info().Str("exchange", ExchangeName).Str("queue", QueueNotify).Msg("rabbitmq notification sink ready")
	return &AMQPSink{conn: conn, channel: ch}, nil
}

func (s *AMQPSink) Name() string { return "rabbitmq" }

func (s *AMQPSink) Deliver(ctx context.Context, in Intent) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return s.channel.PublishWithContext(ctx,
		ExchangeName,
		"intent."+string(in.Kind),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    in.ID,
			Timestamp:    in.At,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (s *AMQPSink) Close() error {
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing rabbitmq channel")
		}
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// KafkaSink writes intents keyed by requester so one user's events stay
// ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokerURL, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokerURL),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, in Intent) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", in.RequesterID)),
		Value: body,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
