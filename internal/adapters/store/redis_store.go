package store

import (
	"beerspots-service/internal/platform/obs"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries under a key prefix and publishes every write on
// "<prefix>changes:<key>" so Watch does not need keyspace notifications.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) entryKey(key string) string   { return s.prefix + key }
func (s *RedisStore) channelKey(key string) string { return s.prefix + "changes:" + key }

func (s *RedisStore) Get(ctx context.Context, key string) (_ string, _ bool, err error) {
	defer obs.Time(ctx, "kv.redis.Get")(&err)

	if s.client == nil {
		return "", false, errors.New("kv store: redis client is nil")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("get kv: key must not be empty")
	}

	value, err := s.client.Get(ctx, s.entryKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv %q: %w", key, err)
	}

	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	if s.client == nil {
		return errors.New("kv store: redis client is nil")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("insert kv: key must not be empty")
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(key), value, 0)
		pipe.Publish(ctx, s.channelKey(key), value)
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert kv %q: %w", key, err)
	}

	return nil
}

func (s *RedisStore) Watch(ctx context.Context, key string) (<-chan string, error) {
	if s.client == nil {
		return nil, errors.New("kv store: redis client is nil")
	}

	sub := s.client.Subscribe(ctx, s.channelKey(key))
	// Wait for the subscription confirmation so no write is missed after return.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("watch kv %q: subscribe: %w", key, err)
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
