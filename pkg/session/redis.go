package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/xhad/trafficlaw/internal/models"
)

type RedisStoreConfig struct {
	URL       string
	KeyPrefix string
	TTL       time.Duration
	// MaxMessages bounds the stored list; older messages are trimmed on append.
	MaxMessages int64
}

// RedisStore keeps each session as a JSON encoded list that expires after TTL
// without activity.
type RedisStore struct {
	client *goredis.Client
	config RedisStoreConfig
}

func NewRedisStore(ctx context.Context, config RedisStoreConfig) (*RedisStore, error) {
	opts, err := goredis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, config), nil
}

func NewRedisStoreFromClient(client *goredis.Client, config RedisStoreConfig) *RedisStore {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "trafficlaw:session:"
	}
	if config.TTL == 0 {
		config.TTL = 24 * time.Hour
	}
	if config.MaxMessages == 0 {
		config.MaxMessages = 100
	}
	return &RedisStore{client: client, config: config}
}

func (s *RedisStore) key(id string) string {
	return s.config.KeyPrefix + id
}

func (s *RedisStore) History(ctx context.Context, id string, maxTurns int) ([]models.Message, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if maxTurns <= 0 {
		return nil, nil
	}

	values, err := s.client.LRange(ctx, s.key(id), int64(-maxTurns*2), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	msgs := make([]models.Message, 0, len(values))
	for _, v := range values {
		var msg models.Message
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode history: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, msgs ...models.Message) error {
	if err := validID(id); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]interface{}, len(msgs))
	for i, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
		values[i] = data
	}

	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, -s.config.MaxMessages, -1)
		pipe.Expire(ctx, key, s.config.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
