package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	MessageAppended    Type = "message.appended"
	MessageUpdated     Type = "message.updated"
	RevealDone         Type = "reveal.done"
	SuggestionsUpdated Type = "suggestions.updated"
	BusyChanged        Type = "busy.changed"
)

// Event describes one change to a chat session's visible state.
type Event struct {
	Type          Type      `json:"type"`
	SessionID     string    `json:"sessionId"`
	Index         int       `json:"index"`
	Author        string    `json:"author,omitempty"`
	Text          string    `json:"text,omitempty"`
	Suggestions   []string  `json:"suggestions,omitempty"`
	NextStepLabel string    `json:"nextStepLabel,omitempty"`
	Busy          bool      `json:"busy"`
	At            time.Time `json:"at"`
}

// Publisher is the narrow side of the bus used by chat sessions.
type Publisher interface {
	Publish(topic string, e Event) error
}

// Topic is the per-session topic name.
func Topic(sessionID string) string {
	return "mentor.session." + sessionID
}

const subscriberBuffer = 64

// Bus is an in-process pub/sub for session events.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, newZerologAdapter(logger)),
	}
}

func (b *Bus) Publish(topic string, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return errors.Wrapf(err, "publish to %s", topic)
	}
	return nil
}

// Subscribe streams decoded events for topic until ctx is done. Events are
// dropped rather than blocking the publisher when the reader falls behind.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, errors.Wrapf(err, "subscribe to %s", topic)
	}
	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range msgs {
			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("dropping undecodable event")
				msg.Ack()
				continue
			}
			select {
			case out <- e:
			default:
				log.Warn().Str("topic", topic).Str("event_type", string(e.Type)).Msg("subscriber is slow, dropping event")
			}
			msg.Ack()
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
