package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 5

// RedisStore keeps progress as one JSON document per run, so every process
// behind a load balancer sees the same state. Values read back are JSON
// decoded: numbers come back as float64.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store over an existing client.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(initialFields(time.Now()))
	if err != nil {
		return "", fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis SET failed: %w", err)
	}
	return id, nil
}

// Update merges fields under WATCH so concurrent updates to the same run are
// not lost.
func (s *RedisStore) Update(ctx context.Context, id string, fields Fields) error {
	key := s.key(id)

	txn := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		maps.Copy(current, fields)
		current[FieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)

		payload, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to marshal progress: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("progress %s: too many concurrent updates", id)
}

func (s *RedisStore) Get(ctx context.Context, id string) (Fields, bool, error) {
	fields, err := s.read(ctx, s.client, s.key(id))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

func (s *RedisStore) Cleanup(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, c getter, key string) (Fields, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return fields, nil
}
