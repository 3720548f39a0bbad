package eventrelay

import (
	"context"
	"sync"
)

// ProcessedKeyStore is the deduplication capability of the webhook receiver:
// the set of idempotency keys already committed.
//
// A key enters the store at most once, upon first successful processing.
// InsertIfAbsent must be a single atomic operation — implementations must
// guarantee that concurrent calls with the same key return true exactly once,
// otherwise two concurrent deliveries could both apply the business effect.
//
// Implementations decide the retention bound (capacity eviction, TTL, or a
// durable backing store); the receiver is decoupled from that choice.
type ProcessedKeyStore interface {
	// Contains reports whether the key was already committed.
	Contains(ctx context.Context, key string) (bool, error)

	// InsertIfAbsent atomically commits the key.
	// Returns true if the key was inserted, false if it was already present.
	InsertIfAbsent(ctx context.Context, key string) (bool, error)
}

// MemoryKeyStore is an in-process ProcessedKeyStore bounded by capacity.
//
// When the capacity is exceeded, the oldest committed keys are evicted in
// insertion order. An evicted key could in principle be accepted again, so
// size the capacity well above the sender's retry horizon. A capacity of 0
// disables eviction (unbounded growth over the process lifetime).
//
// Thread safety: safe for concurrent use.
type MemoryKeyStore struct {
	mu       sync.Mutex
	keys     map[string]struct{}
	order    []string
	capacity int
}

// NewMemoryKeyStore creates a new in-memory key store with the given
// capacity. Use 0 for an unbounded store.
func NewMemoryKeyStore(capacity int) *MemoryKeyStore {
	return &MemoryKeyStore{
		keys:     make(map[string]struct{}),
		capacity: capacity,
	}
}

// Contains reports whether the key was already committed.
func (s *MemoryKeyStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

// InsertIfAbsent atomically commits the key, evicting the oldest key first
// when the store is at capacity.
func (s *MemoryKeyStore) InsertIfAbsent(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return false, nil
	}

	if s.capacity > 0 && len(s.keys) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.keys, oldest)
	}

	s.keys[key] = struct{}{}
	s.order = append(s.order, key)
	return true, nil
}

// Len returns the number of committed keys currently retained.
func (s *MemoryKeyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
