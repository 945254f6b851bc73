package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hirehub/apiserver/config"
)

// Channels carrying domain events.
const (
	ChannelJobApplied     = "job.applied"
	ChannelAccountDeleted = "account.deleted"
)

const contentTypeJSON = "application/json"

// Event is the envelope every domain event travels in. Payload holds the
// JSON-encoded event body.
type Event struct {
	ID         string          `json:"id"`
	Channel    string          `json:"channel"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Handler processes a decoded event. Return an error to have it redelivered.
type Handler func(ctx context.Context, event Event) error

// Backend moves envelopes through a broker. Publish must leave the event
// retained for the channel's subscription even when nobody is consuming yet.
type Backend interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
	now     func() time.Time
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend, now: time.Now}
}

// Open connects to the broker selected by cfg. It returns nil, nil when no
// backend is configured.
func Open(ctx context.Context, cfg config.MQConfig, logger *slog.Logger) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err = NewRabbitMQClient(cfg.RabbitMQ, logger)
	case "pubsub":
		backend, err = NewPubSubClient(ctx, cfg.PubSub, logger)
	default:
		return nil, fmt.Errorf("unsupported mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.Backend, err)
	}
	return New(backend), nil
}

// PublishEvent wraps payload in an Event and publishes it to channel.
func (m *MQ) PublishEvent(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", channel, err)
	}
	return m.backend.Publish(ctx, Event{
		ID:         uuid.NewString(),
		Channel:    channel,
		OccurredAt: m.now().UTC(),
		Payload:    data,
	})
}

// Subscribe consumes events from the named channel until ctx is done.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}

var errMalformedEvent = errors.New("malformed event")

// decodeEvent parses a delivery body received on channel. Bodies that are not
// an envelope for that channel are malformed and never worth redelivering.
func decodeEvent(channel string, body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	switch {
	case event.ID == "":
		return Event{}, fmt.Errorf("%w: missing id", errMalformedEvent)
	case event.Channel != channel:
		return Event{}, fmt.Errorf("%w: channel %q delivered on %q", errMalformedEvent, event.Channel, channel)
	case len(event.Payload) == 0:
		return Event{}, fmt.Errorf("%w: missing payload", errMalformedEvent)
	}
	return event, nil
}
