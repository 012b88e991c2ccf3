package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher publishes events with PUBLISH on the session channel.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var (
	_ Publisher  = (*RedisPublisher)(nil)
	_ Subscriber = (*RedisPublisher)(nil)
)

func NewRedisPublisher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

func (p *RedisPublisher) PublishSessionClosed(ctx context.Context, event SessionClosedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session closed event: %w", err)
	}

	channel := Channel(p.prefix, event.SessionID)
	receivers, err := p.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	p.logger.Debug("session closed event published",
		zap.String("channel", channel),
		zap.String("event_id", event.EventID.String()),
		zap.Int64("receivers", receivers),
	)

	return nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (p *RedisPublisher) Subscribe(ctx context.Context, sessionID uint) (Subscription, error) {
	pubsub := p.client.Subscribe(ctx, Channel(p.prefix, sessionID))

	// wait for the subscription confirmation so no publish slips in between
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe session %d: %w", sessionID, err)
	}

	sub := &redisSubscription{pubsub: pubsub, out: make(chan []byte), done: make(chan struct{})}
	go func() {
		defer close(sub.out)
		for msg := range pubsub.Channel() {
			select {
			case sub.out <- []byte(msg.Payload):
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}
