package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

const defaultKey = "session:credentials"

// RedisStore persists the credential snapshot in Redis so that an agent
// restart rehydrates the session without re-prompting login.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps an existing go-redis client. An empty key falls back
// to the default.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultKey
	}
	return &RedisStore{client: client, key: key}
}

// Save overwrites any prior entry.
func (s *RedisStore) Save(ctx context.Context, creds domain.Credentials, actor domain.Actor) error {
	payload, err := json.Marshal(Snapshot{Credentials: creds, Actor: actor})
	if err != nil {
		return fmt.Errorf("marshal credential snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("persist credential snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted snapshot, or nil when nothing is stored.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		// A corrupt snapshot is unusable; treat it as absent.
		return nil, nil
	}
	return &snapshot, nil
}

// Clear wipes all persisted fields.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear credential snapshot: %w", err)
	}
	return nil
}
