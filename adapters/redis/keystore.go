package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coregx/eventrelay"
)

// DefaultKeyTTL bounds the dedup memory: keys expire after this duration,
// which must comfortably exceed the sender's retry horizon (~15s with the
// default strategy).
const DefaultKeyTTL = 24 * time.Hour

// KeyStore implements eventrelay.ProcessedKeyStore on Redis using SETNX.
// SETNX is atomic on the server, so concurrent deliveries with the same key
// commit exactly once. The TTL keeps the set bounded without eviction logic.
type KeyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewKeyStore creates a Redis-backed processed-key store with the default
// key prefix and TTL.
func NewKeyStore(client *redis.Client) (*KeyStore, error) {
	return NewKeyStoreWithTTL(client, DefaultKeyTTL)
}

// NewKeyStoreWithTTL creates a Redis-backed processed-key store with a
// custom retention TTL. The TTL must exceed the sender's retry horizon or
// retried duplicates may be re-accepted.
func NewKeyStoreWithTTL(client *redis.Client, ttl time.Duration) (*KeyStore, error) {
	if client == nil {
		return nil, eventrelay.NewError(eventrelay.ErrCodeConfiguration, "redis client is required")
	}
	if ttl <= 0 {
		return nil, eventrelay.NewError(eventrelay.ErrCodeConfiguration, "key TTL must be positive")
	}
	return &KeyStore{
		client: client,
		prefix: "eventrelay:processed:",
		ttl:    ttl,
	}, nil
}

// Contains reports whether the key was already committed.
func (s *KeyStore) Contains(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, eventrelay.NewErrorWithCause(eventrelay.ErrCodeStorage, "failed to check processed key", err)
	}
	return true, nil
}

// InsertIfAbsent atomically commits the key via SETNX.
func (s *KeyStore) InsertIfAbsent(ctx context.Context, key string) (bool, error) {
	inserted, err := s.client.SetNX(ctx, s.prefix+key, "1", s.ttl).Result()
	if err != nil {
		return false, eventrelay.NewErrorWithCause(eventrelay.ErrCodeStorage, "failed to commit processed key", err)
	}
	return inserted, nil
}
