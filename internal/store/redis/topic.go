// Package redis carries relay frames between server instances over one Redis
// pub/sub channel.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// subscriptionBuffer is the number of frames held for a slow subscriber.
const subscriptionBuffer = 64

// Options locate the Redis server.
type Options struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// Topic is a single pub/sub channel. Frames are opaque bytes; the caller owns
// their encoding.
type Topic struct {
	client *redis.Client
	name   string
}

// Open connects to Redis and binds the returned Topic to channel name.
func Open(ctx context.Context, opts Options, name string) (*Topic, error) {
	if name == "" {
		return nil, fmt.Errorf("redis.Open: empty channel name")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.Open: ping %s: %w", opts.Addr, err)
	}

	return &Topic{client: client, name: name}, nil
}

// Name returns the bound channel.
func (t *Topic) Name() string { return t.name }

func (t *Topic) Close() error {
	if err := t.client.Close(); err != nil {
		return fmt.Errorf("redis.Topic.Close: %w", err)
	}
	return nil
}

func (t *Topic) Publish(ctx context.Context, frame []byte) error {
	if err := t.client.Publish(ctx, t.name, frame).Err(); err != nil {
		return fmt.Errorf("redis.Topic.Publish %s: %w", t.name, err)
	}
	return nil
}

// Subscribe returns the frames published on the topic and a cleanup func.
// The channel closes when ctx is done or the subscription ends.
func (t *Topic) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	sub := t.client.Subscribe(ctx, t.name)

	// Wait for subscription confirmation so no frame published after this
	// call returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.Topic.Subscribe %s: %w", t.name, err)
	}

	frames := make(chan []byte, subscriptionBuffer)
	messages := sub.Channel()

	go func() {
		defer close(frames)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case frames <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return frames, func() { _ = sub.Close() }, nil
}
