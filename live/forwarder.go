package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/Dosada05/movie-tournament/events"
)

// Subscriber is the subscribing half of events.Bus.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

var topicMessageTypes = map[string]string{
	events.TopicVoteCast:    MessageVoteCast,
	events.TopicMatchOpened: MessageMatchOpened,
	events.TopicMatchClosed: MessageMatchClosed,
}

// Forwarder relays bus events to the current match room.
// It implements suture.Service.
type Forwarder struct {
	subscriber Subscriber
	hub        *Hub
	logger     *slog.Logger
}

func NewForwarder(subscriber Subscriber, hub *Hub, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		subscriber: subscriber,
		hub:        hub,
		logger:     logger.With(slog.String("component", "live_forwarder")),
	}
}

func (f *Forwarder) Serve(ctx context.Context) error {
	merged := make(chan forwarded)
	for _, topic := range events.Topics {
		msgs, err := f.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		go func(topic string, msgs <-chan *message.Message) {
			for msg := range msgs {
				select {
				case merged <- forwarded{topic: topic, msg: msg}:
				case <-ctx.Done():
					msg.Nack()
					return
				}
			}
		}(topic, msgs)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fw := <-merged:
			f.forward(fw.topic, fw.msg)
		}
	}
}

func (f *Forwarder) String() string {
	return "live-forwarder"
}

type forwarded struct {
	topic string
	msg   *message.Message
}

func (f *Forwarder) forward(topic string, msg *message.Message) {
	defer msg.Ack()

	var payload json.RawMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		f.logger.Warn("dropping malformed event", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	f.hub.BroadcastToRoom(RoomCurrentMatch, Message{
		Type:    topicMessageTypes[topic],
		Payload: payload,
	})
}
