package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists agent state in Redis so health hysteresis and
// cooldown timestamps survive process restarts, which matters for the
// one-shot invocation mode where every cycle is a fresh process.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long stale state lives; 0 uses 24 hours.
	TTL time.Duration
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if cfg.DB < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

func stateKey(resourceID string) string {
	return fmt.Sprintf("fleetpilot:state:%s", resourceID)
}

func (r *RedisStore) Load(ctx context.Context, resourceID string) (*AgentState, bool, error) {
	data, err := r.client.Get(ctx, stateKey(resourceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load state from redis: %w", err)
	}

	var state AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, true, nil
}

func (r *RedisStore) Save(ctx context.Context, state *AgentState) error {
	if state.ResourceID == "" {
		return errors.New("resource id required")
	}

	state.UpdatedAt = time.Now()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := r.client.Set(ctx, stateKey(state.ResourceID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store state in redis: %w", err)
	}

	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
