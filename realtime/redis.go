package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"campusparking/logger"
)

// RedisBroker 透過 Redis Pub/Sub 讓多個實例共用 change feed
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker 解析 REDIS_URL 並確認連線
func NewRedisBroker(ctx context.Context, redisURL, channel string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisBrokerWithClient(client, channel)
}

func NewRedisBrokerWithClient(client *redis.Client, channel string) (*RedisBroker, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	return &RedisBroker{client: client, channel: channel}, nil
}

// Client 讓 rate limiter 共用同一條連線
func (b *RedisBroker) Client() *redis.Client {
	return b.client
}

func (b *RedisBroker) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	log := logger.FromContext(ctx)
	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan ChangeEvent, subscriptionBuffer)
	go func(messages <-chan *redis.Message) {
		defer close(out)
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn("Dropping malformed change event", "channel", b.channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}(pubsub.Channel())

	return &redisSubscription{pubsub: pubsub, cancel: cancel, events: out}, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	events <-chan ChangeEvent
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
	})
	return err
}
