package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/hirehub/apiserver/config"
)

type recordingBackend struct {
	events []Event
	err    error
}

func (b *recordingBackend) Publish(ctx context.Context, event Event) error {
	b.events = append(b.events, event)
	return b.err
}

func (b *recordingBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, event := range b.events {
		if event.Channel != channel {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *recordingBackend) Close() error { return nil }

func TestPublishEventWrapsPayload(t *testing.T) {
	c := qt.New(t)
	backend := &recordingBackend{}
	m := New(backend)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	m.now = func() time.Time { return at }

	err := m.PublishEvent(context.Background(), ChannelJobApplied, map[string]any{"jobId": 4, "applicantId": 9})
	c.Assert(err, qt.IsNil)
	c.Assert(backend.events, qt.HasLen, 1)

	event := backend.events[0]
	c.Assert(event.ID, qt.Not(qt.Equals), "")
	c.Assert(event.Channel, qt.Equals, ChannelJobApplied)
	c.Assert(event.OccurredAt, qt.Equals, at.UTC())

	var got map[string]int
	c.Assert(json.Unmarshal(event.Payload, &got), qt.IsNil)
	c.Assert(got, qt.DeepEquals, map[string]int{"jobId": 4, "applicantId": 9})
}

func TestPublishEventAssignsDistinctIDs(t *testing.T) {
	c := qt.New(t)
	backend := &recordingBackend{}
	m := New(backend)

	for i := 0; i < 3; i++ {
		c.Assert(m.PublishEvent(context.Background(), ChannelAccountDeleted, struct{}{}), qt.IsNil)
	}
	seen := map[string]bool{}
	for _, event := range backend.events {
		seen[event.ID] = true
	}
	c.Assert(seen, qt.HasLen, 3)
}

func TestPublishEventPropagatesBackendError(t *testing.T) {
	c := qt.New(t)
	boom := errors.New("broker down")
	m := New(&recordingBackend{err: boom})

	c.Assert(m.PublishEvent(context.Background(), ChannelAccountDeleted, struct{}{}), qt.ErrorIs, boom)
}

func TestPublishEventRejectsUnencodable(t *testing.T) {
	c := qt.New(t)
	backend := &recordingBackend{}
	m := New(backend)

	err := m.PublishEvent(context.Background(), ChannelJobApplied, make(chan int))
	c.Assert(err, qt.ErrorMatches, "encode job.applied event: .*")
	c.Assert(backend.events, qt.HasLen, 0)
}

func TestSubscribeDeliversEnvelope(t *testing.T) {
	c := qt.New(t)
	m := New(&recordingBackend{})
	ctx := context.Background()
	c.Assert(m.PublishEvent(ctx, ChannelJobApplied, map[string]int{"jobId": 1}), qt.IsNil)
	c.Assert(m.PublishEvent(ctx, ChannelAccountDeleted, map[string]int{"userId": 2}), qt.IsNil)

	var got []string
	err := m.Subscribe(ctx, ChannelAccountDeleted, func(_ context.Context, event Event) error {
		got = append(got, string(event.Payload))
		return nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{`{"userId":2}`})
}

func TestDecodeEvent(t *testing.T) {
	c := qt.New(t)

	body, err := json.Marshal(Event{
		ID:         "e-1",
		Channel:    ChannelJobApplied,
		OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Payload:    json.RawMessage(`{"jobId":7}`),
	})
	c.Assert(err, qt.IsNil)

	event, err := decodeEvent(ChannelJobApplied, body)
	c.Assert(err, qt.IsNil)
	c.Assert(event.ID, qt.Equals, "e-1")
	c.Assert(string(event.Payload), qt.Equals, `{"jobId":7}`)

	tests := []struct {
		name    string
		channel string
		body    string
		errMsg  string
	}{
		{name: "not json", channel: ChannelJobApplied, body: `jobId=7`, errMsg: "malformed event: .*"},
		{name: "bare payload", channel: ChannelJobApplied, body: `{"jobId":7}`, errMsg: "malformed event: missing id"},
		{name: "wrong channel", channel: ChannelAccountDeleted, body: string(body), errMsg: `malformed event: channel "job.applied" delivered on "account.deleted"`},
		{name: "no payload", channel: ChannelJobApplied, body: `{"id":"e-2","channel":"job.applied"}`, errMsg: "malformed event: missing payload"},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			_, err := decodeEvent(tt.channel, []byte(tt.body))
			c.Assert(err, qt.ErrorIs, errMalformedEvent)
			c.Assert(err, qt.ErrorMatches, tt.errMsg)
		})
	}
}

func TestOpen(t *testing.T) {
	c := qt.New(t)

	m, err := Open(context.Background(), config.MQConfig{}, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(m, qt.IsNil)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"}, nil)
	c.Assert(err, qt.ErrorMatches, `unsupported mq backend "kafka"`)

	_, err = Open(context.Background(), config.MQConfig{Backend: "rabbitmq"}, nil)
	c.Assert(err, qt.ErrorMatches, "init rabbitmq: rabbitmq url is required")

	_, err = Open(context.Background(), config.MQConfig{Backend: "pubsub"}, nil)
	c.Assert(err, qt.ErrorMatches, "init pubsub: pubsub project id is required")
}
