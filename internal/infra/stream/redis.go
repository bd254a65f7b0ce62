package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds redis connection configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// RedisSource delivers events over redis pub/sub, one channel per topic.
type RedisSource struct {
	rdb *redis.Client
}

// NewRedisSource connects to redis and verifies the connection.
func NewRedisSource(cfg RedisConfig) (*RedisSource, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSource{rdb: rdb}, nil
}

// Close closes the redis connection.
func (r *RedisSource) Close() error {
	return r.rdb.Close()
}

// Subscribe attaches to the topic's pub/sub channel.
func (r *RedisSource) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := r.rdb.Subscribe(ctx, topic)

	// Force the subscription to be established before returning so events
	// published after Subscribe are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &redisSub{
		ps:     ps,
		events: make(chan Event, 64),
	}
	go sub.pump(topic)
	return sub, nil
}

type redisSub struct {
	ps     *redis.PubSub
	events chan Event
	once   sync.Once
}

func (s *redisSub) pump(topic string) {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		s.events <- Event{Topic: topic, Data: []byte(msg.Payload)}
	}
}

func (s *redisSub) Events() <-chan Event {
	return s.events
}

func (s *redisSub) Close() {
	s.once.Do(func() {
		// Closing the PubSub ends Channel(), which ends the pump.
		_ = s.ps.Close()
	})
}
