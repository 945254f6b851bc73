package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hirehub/apiserver/config"
)

const defaultExchange = "hirehub.events"

// RabbitMQClient publishes events to a topic exchange with the channel name as
// routing key. Every channel gets a queue bound to that key, declared on first
// publish so events wait there until a watcher drains them.
type RabbitMQClient struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	durable  bool
	logger   *slog.Logger

	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQClient dials the broker, declares the events exchange and puts
// the channel in confirm mode.
func NewRabbitMQClient(cfg config.RabbitMQConfig, logger *slog.Logger) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = defaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	setup := func() error {
		if cfg.PrefetchCount > 0 {
			if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
				return fmt.Errorf("set prefetch: %w", err)
			}
		}
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, cfg.QueueDurable, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %q: %w", exchange, err)
		}
		if err := ch.Confirm(false); err != nil {
			return fmt.Errorf("enable confirms: %w", err)
		}
		return nil
	}
	if err := setup(); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		durable:  cfg.QueueDurable,
		logger:   logger,
		declared: make(map[string]bool),
	}, nil
}

// Publish sends a persistent message and waits for the broker to confirm it.
func (r *RabbitMQClient) Publish(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.Channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if err := r.bindQueue(event.Channel); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, r.exchange, event.Channel, false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         event.Channel,
		Body:         body,
	})
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("broker rejected event %s", event.ID)
	}
	return nil
}

// Subscribe consumes the channel's queue. Malformed deliveries are dropped;
// a handler error requeues the delivery.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if err := r.bindQueue(channel); err != nil {
		return err
	}

	consumerTag := fmt.Sprintf("hirehub-%s", uuid.NewString())
	deliveries, err := r.channel.Consume(channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			event, err := decodeEvent(channel, delivery.Body)
			if err != nil {
				r.logger.WarnContext(ctx, "dropping event", "channel", channel, "message_id", delivery.MessageId, "error", err)
				_ = delivery.Reject(false)
				continue
			}
			if err := handler(ctx, event); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// bindQueue declares the channel's queue and binds it to the exchange once
// per client.
func (r *RabbitMQClient) bindQueue(channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.declared[channel] {
		return nil
	}
	if _, err := r.channel.QueueDeclare(channel, r.durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", channel, err)
	}
	if err := r.channel.QueueBind(channel, channel, r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q: %w", channel, err)
	}
	r.declared[channel] = true
	return nil
}
