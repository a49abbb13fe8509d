package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idem:"

// RedisStore shares claims across instances. A claim is a SET NX with TTL, so
// two instances racing on one key cannot both win.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Claim(ctx context.Context, key, fingerprint string, ttl time.Duration) (*Record, error) {
	pending, err := json.Marshal(Record{Fingerprint: fingerprint, Pending: true})
	if err != nil {
		return nil, fmt.Errorf("encode claim: %w", err)
	}

	// Two attempts: the key may expire between a lost SET NX and the GET.
	for range 2 {
		claimed, err := s.client.SetNX(ctx, keyPrefix+key, pending, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if claimed {
			return nil, nil
		}

		raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read idempotency key: %w", err)
		}
		var existing Record
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, fmt.Errorf("decode idempotency record: %w", err)
		}
		return &existing, nil
	}
	return nil, errors.New("idempotency key churned during claim")
}

func (s *RedisStore) Complete(ctx context.Context, key string, record Record, ttl time.Duration) error {
	record.Pending = false
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+key, payload, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
