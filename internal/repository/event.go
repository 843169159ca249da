package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/concentration"
)

// EventRepository keeps the latest event of every session for late renderers
// and fans every event out over Redis pub/sub.
type EventRepository interface {
	Save(ctx context.Context, event concentration.Event) error
	GetByID(ctx context.Context, sessionID string) (*concentration.Event, error)
	DeleteByID(ctx context.Context, sessionID string) error

	Publish(ctx context.Context, event concentration.Event) error
	Subscribe(ctx context.Context, sessionID string) (Subscription, error)
}

// Subscription delivers the events published for one session until closed.
type Subscription interface {
	Events() <-chan concentration.Event
	Close() error
}

type dbEvent struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventRepository - ttl bounds how long a snapshot outlives its last update; zero keeps it forever.
func NewEventRepository(client *redis.Client, ttl time.Duration) EventRepository {
	return &dbEvent{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func channelKey(sessionID string) string {
	return "session:" + sessionID + ":events"
}

func (that *dbEvent) Save(ctx context.Context, event concentration.Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	if err = that.client.Set(ctx, sessionKey(event.SessionID), eventJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session snapshot: %w", err)
	}

	return nil
}

func (that *dbEvent) GetByID(ctx context.Context, sessionID string) (*concentration.Event, error) {
	response, err := that.client.Get(ctx, sessionKey(sessionID)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session snapshot: %w", err)
	}

	var event concentration.Event
	if err = json.Unmarshal([]byte(response), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}

func (that *dbEvent) DeleteByID(ctx context.Context, sessionID string) error {
	deleted, err := that.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}

	if deleted == 0 {
		return apperror.ErrSessionNotFound
	}

	return nil
}

func (that *dbEvent) Publish(ctx context.Context, event concentration.Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	if err = that.client.Publish(ctx, channelKey(event.SessionID), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan concentration.Event
}

func (that *dbEvent) Subscribe(ctx context.Context, sessionID string) (Subscription, error) {
	pubsub := that.client.Subscribe(ctx, channelKey(sessionID))

	// wait for the confirmation so no event published after Subscribe returns is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	subscription := &redisSubscription{
		pubsub: pubsub,
		events: make(chan concentration.Event),
	}

	go subscription.forward(ctx)

	return subscription, nil
}

func (that *redisSubscription) Events() <-chan concentration.Event {
	return that.events
}

func (that *redisSubscription) Close() error {
	if err := that.pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription: %w", err)
	}

	return nil
}

func (that *redisSubscription) forward(ctx context.Context) {
	defer close(that.events)

	messages := that.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}

			var event concentration.Event
			if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
				continue
			}

			select {
			case that.events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
