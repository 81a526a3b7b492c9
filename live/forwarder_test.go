package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/movie-tournament/events"
)

type channelSubscriber struct {
	topics map[string]chan *message.Message
}

func newChannelSubscriber() *channelSubscriber {
	s := &channelSubscriber{topics: map[string]chan *message.Message{}}
	for _, topic := range events.Topics {
		s.topics[topic] = make(chan *message.Message, 1)
	}
	return s
}

func (s *channelSubscriber) Subscribe(_ context.Context, topic string) (<-chan *message.Message, error) {
	return s.topics[topic], nil
}

func TestForwarder_RelaysEventsToCurrentMatchRoom(t *testing.T) {
	hub := startHub(t)
	viewer := newTestClient(hub, RoomCurrentMatch)
	sub := newChannelSubscriber()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewForwarder(sub, hub, discardLogger()).Serve(ctx) }()

	payload, err := json.Marshal(events.VoteCast{MatchID: 4, MovieID: 9, Tally: 12})
	require.NoError(t, err)
	msg := message.NewMessage(watermill.NewUUID(), payload)
	sub.topics[events.TopicVoteCast] <- msg

	got := receive(t, viewer)
	assert.Equal(t, MessageVoteCast, got.Type)

	body, err := json.Marshal(got.Payload)
	require.NoError(t, err)
	var vote events.VoteCast
	require.NoError(t, json.Unmarshal(body, &vote))
	assert.Equal(t, int64(4), vote.MatchID)
	assert.Equal(t, 12, vote.Tally)

	select {
	case <-msg.Acked():
	case <-time.After(time.Second):
		t.Fatal("message was not acked")
	}
}

func TestForwarder_DropsMalformedPayload(t *testing.T) {
	hub := startHub(t)
	viewer := newTestClient(hub, RoomCurrentMatch)
	sub := newChannelSubscriber()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewForwarder(sub, hub, discardLogger()).Serve(ctx) }()

	bad := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	sub.topics[events.TopicMatchClosed] <- bad

	select {
	case <-bad.Acked():
	case <-time.After(time.Second):
		t.Fatal("malformed message was not acked")
	}
	assert.Empty(t, viewer.Send)
}

func TestForwarder_WithBus(t *testing.T) {
	hub := startHub(t)
	viewer := newTestClient(hub, RoomCurrentMatch)
	bus := events.NewBus(discardLogger())
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewForwarder(bus, hub, discardLogger()).Serve(ctx) }()

	// GoChannel drops messages published before the subscription exists.
	require.Eventually(t, func() bool {
		_ = bus.PublishMatchOpened(ctx, events.MatchOpened{MatchID: 1, RoundNumber: 1})
		select {
		case data := <-viewer.Send:
			var msg Message
			return json.Unmarshal(data, &msg) == nil && msg.Type == MessageMatchOpened
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}
