package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// Message is an outbox row ready to leave the process.
type Message struct {
	ID        string
	Type      string
	PaymentID string
	Body      []byte
}

func messageFromOutbox(row OutboxEvent) (Message, error) {
	body, err := json.Marshal(map[string]any{
		"id":      strconv.FormatInt(int64(row.ID), 10),
		"type":    row.EventType,
		"payload": row.Payload,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:        strconv.FormatInt(int64(row.ID), 10),
		Type:      row.EventType,
		PaymentID: strconv.FormatInt(int64(row.PaymentID), 10),
		Body:      body,
	}, nil
}

// Publisher delivers a batch to one broker.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, msgs []Message) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the publisher needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher keys messages by payment id so one payment's events stay
// ordered within a partition.
type KafkaPublisher struct {
	writer KafkaWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

func NewKafkaPublisherWithWriter(w KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, kafka.Message{
			Key:   []byte(msg.PaymentID),
			Value: msg.Body,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(msg.Type)},
				{Key: "event_id", Value: []byte(msg.ID)},
			},
		})
	}
	return p.writer.WriteMessages(ctx, out...)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// AMQPChannel is the subset of amqp.Channel the publisher needs.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher routes each event to a topic exchange by event type.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  AMQPChannel
	exchange string
}

func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitMQPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func NewRabbitMQPublisherWithChannel(ch AMQPChannel, exchange string) *RabbitMQPublisher {
	return &RabbitMQPublisher{channel: ch, exchange: exchange}
}

func (p *RabbitMQPublisher) Name() string { return "rabbitmq" }

func (p *RabbitMQPublisher) Publish(ctx context.Context, msgs []Message) error {
	for _, msg := range msgs {
		err := p.channel.PublishWithContext(
			ctx,
			p.exchange,
			msg.Type, // routing key
			false,    // mandatory
			false,    // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         msg.Type,
				Body:         msg.Body,
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
