package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// DefaultRedisChannel carries live events between instances.
const DefaultRedisChannel = "ev-notify:live"

type envelope struct {
	Origin string          `json:"origin"`
	UserID *uuid.UUID      `json:"user_id,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sent_at"`
}

// RedisFanout extends a local Broker across instances. Sends are delivered to local
// sessions right away and published on a Redis channel; every other instance
// replays them into its own broker. Counts returned cover local sessions only.
type RedisFanout struct {
	broker  *Broker
	client  *redis.Client
	channel string
	origin  string
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

func NewRedisFanout(broker *Broker, client *redis.Client, channel string, logger *slog.Logger) *RedisFanout {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisFanout{
		broker:  broker,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "live-redis-publish",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
		logger: logger,
		ready:  make(chan struct{}),
	}
}

func (f *RedisFanout) Send(userID uuid.UUID, event string, payload any) int {
	ev, err := NewEvent(event, payload)
	if err != nil {
		f.logger.Error("live event encode failed", "event", event, "error", err)
		return 0
	}
	n := f.broker.Deliver(userID, ev)
	f.publish(&userID, ev)
	return n
}

func (f *RedisFanout) Broadcast(event string, payload any) int {
	ev, err := NewEvent(event, payload)
	if err != nil {
		f.logger.Error("live event encode failed", "event", event, "error", err)
		return 0
	}
	n := f.broker.DeliverAll(ev)
	f.publish(nil, ev)
	return n
}

func (f *RedisFanout) publish(userID *uuid.UUID, ev Event) {
	body, err := json.Marshal(envelope{
		Origin: f.origin,
		UserID: userID,
		Event:  ev.Name,
		Data:   ev.Data,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		f.logger.Error("live fanout encode failed", "error", err)
		return
	}

	_, err = f.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return nil, f.client.Publish(ctx, f.channel, body).Err()
	})
	if err != nil {
		f.logger.Warn("live fanout publish failed", "channel", f.channel, "error", err)
	}
}

// Ready is closed once the subscription is established.
func (f *RedisFanout) Ready() <-chan struct{} { return f.ready }

// Run replays events published by other instances into the local broker until ctx ends.
func (f *RedisFanout) Run(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	f.readyOnce.Do(func() { close(f.ready) })
	f.logger.Info("live fanout subscribed", "channel", f.channel, "origin", f.origin)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.replay(msg.Payload)
		}
	}
}

func (f *RedisFanout) replay(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		f.logger.Warn("live fanout decode failed", "error", err)
		return
	}
	if env.Origin == f.origin || env.Event == "" {
		return
	}
	ev := Event{Name: env.Event, Data: env.Data}
	if env.UserID == nil {
		f.broker.DeliverAll(ev)
		return
	}
	f.broker.Deliver(*env.UserID, ev)
}
