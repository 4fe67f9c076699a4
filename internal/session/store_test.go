package session

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "sessions.json"), nil, nil)
}

func TestThreadID(t *testing.T) {
	t.Parallel()

	base := ThreadID("Lunch plans?", "user@example.com")

	// Reply and forward prefixes, case, and whitespace all map to one thread.
	assert.Equal(t, base, ThreadID("Re: Lunch plans?", "user@example.com"))
	assert.Equal(t, base, ThreadID("RE: re: Lunch plans?", "user@example.com"))
	assert.Equal(t, base, ThreadID("Fwd: lunch plans?", "USER@example.com"))
	assert.Equal(t, base, ThreadID("  lunch plans?  ", "user@example.com"))

	assert.NotEqual(t, base, ThreadID("Lunch plans?", "other@example.com"))
	assert.NotEqual(t, base, ThreadID("Dinner plans?", "user@example.com"))
}

func TestStore_GetOrCreate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	conv, err := store.GetOrCreate("Trip ideas", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Trip ideas", conv.Subject)
	assert.Empty(t, conv.Messages)

	again, err := store.GetOrCreate("Re: Trip ideas", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, conv.ThreadID, again.ThreadID, "replies continue the thread")
}

func TestStore_GetOrCreateConcurrent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.GetOrCreate("Same thread", "user@example.com"); err != nil {
				t.Errorf("GetOrCreate: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, store.ListConversations("user@example.com", 0), 1, "one thread, however many racers")
}

func TestStore_AddMessage(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	conv, err := store.GetOrCreate("Q", "user@example.com")
	require.NoError(t, err)

	require.NoError(t, store.AddMessage(conv.ThreadID, "user", "what's on my list?"))
	require.NoError(t, store.AddMessage(conv.ThreadID, "assistant", "milk and eggs"))

	got, ok := store.Get(conv.ThreadID)
	require.True(t, ok)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "milk and eggs", got.Messages[1].Content)
	assert.NotEmpty(t, got.UpdatedAt)

	assert.Error(t, store.AddMessage("session-unknown", "user", "hello?"))
}

func TestStore_ListConversationsNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	var threadIDs []string
	for i := 0; i < 3; i++ {
		conv, err := store.GetOrCreate(fmt.Sprintf("Subject %d", i), "user@example.com")
		require.NoError(t, err)
		threadIDs = append(threadIDs, conv.ThreadID)
	}
	_, err := store.GetOrCreate("Unrelated", "other@example.com")
	require.NoError(t, err)

	// Touch the oldest thread so it becomes the most recently updated.
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, store.AddMessage(threadIDs[0], "user", "bump"))

	listed := store.ListConversations("user@example.com", 2)
	require.Len(t, listed, 2)
	assert.Equal(t, threadIDs[0], listed[0].ThreadID)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	conv, err := store.GetOrCreate("Bye", "user@example.com")
	require.NoError(t, err)

	deleted, err := store.Delete(conv.ThreadID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(conv.ThreadID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_CleanupOld(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	store := NewStore(path, nil, nil)

	fresh, err := store.GetOrCreate("Fresh", "user@example.com")
	require.NoError(t, err)
	stale, err := store.GetOrCreate("Stale", "user@example.com")
	require.NoError(t, err)

	// Backdate the stale conversation well past the cutoff.
	store.mu.Lock()
	conversations := store.loadLocked()
	conversations[stale.ThreadID].UpdatedAt = time.Now().AddDate(0, 0, -45).Format(time.RFC3339)
	require.NoError(t, store.saveLocked(conversations))
	store.mu.Unlock()

	removed, err := store.CleanupOld(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := store.Get(fresh.ThreadID)
	assert.True(t, ok)
	_, ok = store.Get(stale.ThreadID)
	assert.False(t, ok)

	removed, err = store.CleanupOld(30)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
