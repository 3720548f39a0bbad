package eventrelay

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryKeyStore_InsertIfAbsent(t *testing.T) {
	store := NewMemoryKeyStore(0)
	ctx := context.Background()

	inserted, err := store.InsertIfAbsent(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, inserted)

	// Second insert of the same key reports already present
	inserted, err = store.InsertIfAbsent(ctx, "key-1")
	assert.NoError(t, err)
	assert.False(t, inserted)

	seen, err := store.Contains(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.Contains(ctx, "key-2")
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryKeyStore_CapacityEviction(t *testing.T) {
	store := NewMemoryKeyStore(3)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		inserted, err := store.InsertIfAbsent(ctx, fmt.Sprintf("key-%d", i))
		assert.NoError(t, err)
		assert.True(t, inserted)
	}
	assert.Equal(t, 3, store.Len())

	// Fourth insert evicts the oldest key
	inserted, err := store.InsertIfAbsent(ctx, "key-4")
	assert.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, 3, store.Len())

	seen, _ := store.Contains(ctx, "key-1")
	assert.False(t, seen, "oldest key should be evicted")
	seen, _ = store.Contains(ctx, "key-2")
	assert.True(t, seen)
	seen, _ = store.Contains(ctx, "key-4")
	assert.True(t, seen)

	// An evicted key can be accepted again
	inserted, err = store.InsertIfAbsent(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, inserted)
}

func TestMemoryKeyStore_UnboundedWhenZeroCapacity(t *testing.T) {
	store := NewMemoryKeyStore(0)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		inserted, err := store.InsertIfAbsent(ctx, fmt.Sprintf("key-%d", i))
		assert.NoError(t, err)
		assert.True(t, inserted)
	}
	assert.Equal(t, 100, store.Len())
}

func TestMemoryKeyStore_ConcurrentSameKey(t *testing.T) {
	store := NewMemoryKeyStore(0)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	results := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := store.InsertIfAbsent(ctx, "shared-key")
			assert.NoError(t, err)
			results <- inserted
		}()
	}
	wg.Wait()
	close(results)

	// Exactly one goroutine wins the insert
	winners := 0
	for inserted := range results {
		if inserted {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, store.Len())
}
