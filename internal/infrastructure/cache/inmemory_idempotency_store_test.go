package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("marks new notification as processed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "settlement:pay-1:SUCCEEDED", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew, "new notification should return true")
	})

	t.Run("returns false for already processed notification", func(t *testing.T) {
		key := "settlement:pay-2:SUCCEEDED"

		isNew, err := store.MarkProcessed(ctx, key, time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, key, time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "already processed notification should return false")
	})

	t.Run("same payment with different outcome is a different key", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "settlement:pay-3:SUCCEEDED", time.Hour)
		require.NoError(t, err)

		isNew, err := store.MarkProcessed(ctx, "settlement:pay-3:FAILED", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("allows reprocessing after expiration", func(t *testing.T) {
		key := "settlement:pay-4:SUCCEEDED"

		isNew, err := store.MarkProcessed(ctx, key, 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, key, 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew, "expired notification should be reprocessable")
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("returns false for unprocessed notification", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "unknown-key")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("returns true for processed notification", func(t *testing.T) {
		key := "settlement:pay-5:SUCCEEDED"
		_, err := store.MarkProcessed(ctx, key, time.Hour)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("returns false for expired notification", func(t *testing.T) {
		key := "settlement:pay-6:SUCCEEDED"
		_, err := store.MarkProcessed(ctx, key, 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.False(t, processed, "expired notification should return false")
	})
}

func TestInMemoryIdempotencyStore_Unmark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	key := "settlement:pay-7:SUCCEEDED"

	_, err := store.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Unmark(ctx, key))

	// After a failed handling the same notification must be retryable.
	isNew, err := store.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	// Unmarking an unknown key is harmless.
	assert.NoError(t, store.Unmark(ctx, "never-marked"))
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	store.MarkProcessed(ctx, "short-lived-1", 10*time.Millisecond)
	store.MarkProcessed(ctx, "short-lived-2", 10*time.Millisecond)
	store.MarkProcessed(ctx, "long-lived", time.Hour)

	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())

	processed, err := store.IsProcessed(ctx, "long-lived")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsProcessed(ctx, "short-lived-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 100
	const key = "settlement:pay-concurrent:SUCCEEDED"

	results := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, key, time.Hour)
			if err != nil {
				results <- false
			} else {
				results <- isNew
			}
		}()
	}

	newCount := 0
	duplicateCount := 0
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			newCount++
		} else {
			duplicateCount++
		}
	}

	// Only one delivery may win the race and actually process.
	assert.Equal(t, 1, newCount, "exactly one goroutine should mark as new")
	assert.Equal(t, numGoroutines-1, duplicateCount, "all others should be duplicates")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	err := store.Close()
	assert.NoError(t, err)

	err = store.Close()
	assert.NoError(t, err)
}
