package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/hirehub/apiserver/config"
)

// PubSubClient maps each channel to a topic with one subscription. Pub/Sub
// discards messages on a topic with no subscriptions, so Publish creates the
// subscription along with the topic.
type PubSubClient struct {
	client             *pubsub.Client
	subscriptionSuffix string
	logger             *slog.Logger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubClient constructs a Pub/Sub client from config.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig, logger *slog.Logger) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}

	return &PubSubClient{
		client:             client,
		subscriptionSuffix: suffix,
		logger:             logger,
		topics:             make(map[string]*pubsub.Topic),
	}, nil
}

// Publish sends the envelope and blocks until the server assigns it an id.
func (p *PubSubClient) Publish(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.Channel) == "" {
		return errors.New("pubsub channel is required")
	}

	topic, err := p.channelTopic(ctx, event.Channel)
	if err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	_, err = topic.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"content-type": contentTypeJSON,
			"event-id":     event.ID,
		},
	}).Get(ctx)
	return err
}

// Subscribe receives from the channel's subscription. Malformed messages are
// acked and logged since redelivery cannot fix them.
func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("pubsub channel is required")
	}

	if _, err := p.channelTopic(ctx, channel); err != nil {
		return err
	}

	sub := p.client.Subscription(p.subscriptionName(channel))
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		event, err := decodeEvent(channel, msg.Data)
		if err != nil {
			p.logger.WarnContext(ctx, "dropping event", "channel", channel, "message_id", msg.ID, "error", err)
			msg.Ack()
			return
		}
		if err := handler(ctx, event); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close flushes pending publishes and closes the client.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	for _, topic := range p.topics {
		topic.Stop()
	}
	p.mu.Unlock()
	return p.client.Close()
}

// channelTopic returns the channel's topic, creating it and its subscription
// on first use.
func (p *PubSubClient) channelTopic(ctx context.Context, channel string) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if topic, ok := p.topics[channel]; ok {
		return topic, nil
	}

	topic := p.client.Topic(channel)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		if topic, err = p.client.CreateTopic(ctx, channel); err != nil {
			return nil, fmt.Errorf("create topic %q: %w", channel, err)
		}
	}

	name := p.subscriptionName(channel)
	sub := p.client.Subscription(name)
	exists, err = sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		if _, err := p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic}); err != nil {
			return nil, fmt.Errorf("create subscription %q: %w", name, err)
		}
	}

	p.topics[channel] = topic
	return topic, nil
}

func (p *PubSubClient) subscriptionName(channel string) string {
	return channel + p.subscriptionSuffix
}
