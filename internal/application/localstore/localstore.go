// Package localstore keeps the id of the draft being edited so a reload without a
// resume link can still find it.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "driver-application:local-id:"

// Memory holds the id for the lifetime of the process.
type Memory struct {
	mu sync.Mutex
	id string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *Memory) Set(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	return m.Set(ctx, "")
}

// Redis stores the id under a per-device key, so any process serving that device sees it.
type Redis struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedis scopes the store to deviceID. A zero ttl keeps the key until it is cleared.
func NewRedis(client redis.Cmdable, deviceID string, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	return &Redis{client: client, key: keyPrefix + deviceID, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context) (string, error) {
	id, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read local id: %w", err)
	}
	return id, nil
}

func (r *Redis) Set(ctx context.Context, id string) error {
	if id == "" {
		return r.Clear(ctx)
	}
	if err := r.client.Set(ctx, r.key, id, r.ttl).Err(); err != nil {
		return fmt.Errorf("store local id: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear local id: %w", err)
	}
	return nil
}
