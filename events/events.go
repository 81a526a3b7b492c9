// Package events carries tournament domain events over an in-process
// Watermill pub/sub so the vote path and the scheduler never talk to
// presentation code directly.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Dosada05/movie-tournament/models"
)

const (
	TopicVoteCast    = "tournament.vote.cast"
	TopicMatchOpened = "tournament.match.opened"
	TopicMatchClosed = "tournament.match.closed"
)

// Topics lists every topic the bus carries.
var Topics = []string{TopicVoteCast, TopicMatchOpened, TopicMatchClosed}

type VoteCast struct {
	MatchID int64     `json:"match_id"`
	MovieID int64     `json:"movie_id"`
	Tally   int       `json:"tally"`
	CastAt  time.Time `json:"cast_at"`
}

type MatchOpened struct {
	MatchID     int64          `json:"match_id"`
	RoundNumber int            `json:"round_number"`
	RoundDate   time.Time      `json:"round_date"`
	Contenders  []models.Tally `json:"contenders"`
}

type MatchClosed struct {
	Result models.MatchResult `json:"result"`
}

// Publisher is what the services and scheduler depend on.
type Publisher interface {
	PublishVoteCast(ctx context.Context, e VoteCast) error
	PublishMatchOpened(ctx context.Context, e MatchOpened) error
	PublishMatchClosed(ctx context.Context, e MatchClosed) error
}

// Bus is a Publisher backed by Watermill's GoChannel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewSlogLogger(logger),
	)
	return &Bus{pubsub: pubsub, logger: logger}
}

func (b *Bus) publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

func (b *Bus) PublishVoteCast(ctx context.Context, e VoteCast) error {
	return b.publish(ctx, TopicVoteCast, e)
}

func (b *Bus) PublishMatchOpened(ctx context.Context, e MatchOpened) error {
	return b.publish(ctx, TopicMatchOpened, e)
}

func (b *Bus) PublishMatchClosed(ctx context.Context, e MatchClosed) error {
	return b.publish(ctx, TopicMatchClosed, e)
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishVoteCast(context.Context, VoteCast) error       { return nil }
func (NopPublisher) PublishMatchOpened(context.Context, MatchOpened) error { return nil }
func (NopPublisher) PublishMatchClosed(context.Context, MatchClosed) error { return nil }

func NewMatchOpened(m *models.Match) MatchOpened {
	return MatchOpened{
		MatchID:     m.ID,
		RoundNumber: m.RoundNumber,
		RoundDate:   m.RoundDate,
		Contenders:  m.Tallies(),
	}
}
