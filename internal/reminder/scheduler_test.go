package reminder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockNotifier records Send calls.
type mockNotifier struct {
	mu    sync.Mutex
	sends []sentMail
	err   error
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *mockNotifier) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sentMail{To: to, Subject: subject, Body: body})
	return m.err
}

func (m *mockNotifier) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

func (m *mockNotifier) lastSend() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends[len(m.sends)-1]
}

// mockActivityLog records fired reminders.
type mockActivityLog struct {
	mu      sync.Mutex
	entries []string
	err     error
}

func (m *mockActivityLog) LogFired(userEmail, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, userEmail+": "+message)
	return m.err
}

func newTestScheduler(t *testing.T, notifier *mockNotifier) (*Scheduler, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "reminders.json"), nil, nil)
	sched := NewScheduler(Config{
		Location:          time.UTC,
		AllowedRecipients: []string{"User@Example.com", "other@example.com"},
	}, store, notifier, &mockActivityLog{}, nil, nil)
	t.Cleanup(func() { sched.CancelAll() })
	return sched, store
}

func TestScheduler_BasicLifecycle(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	sched, store := newTestScheduler(t, notifier)

	r := New("test", time.Now().UTC().Add(time.Hour).Format(time.RFC3339), "user@example.com")
	require.NoError(t, sched.Add(r))

	assert.Equal(t, 1, store.Count())
	assert.Equal(t, 1, sched.ActiveTimerCount())
	assert.Zero(t, notifier.sendCount())

	// Simulate the timer elapsing.
	sched.fire(r)

	assert.Equal(t, 0, store.Count())
	assert.Equal(t, 0, sched.ActiveTimerCount())
	require.Equal(t, 1, notifier.sendCount())
	sent := notifier.lastSend()
	assert.Equal(t, "user@example.com", sent.To)
	assert.Contains(t, sent.Subject, "test")
	assert.Contains(t, sent.Body, "This is your reminder: test")
}

func TestScheduler_PastDueFiresImmediately(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	sched, store := newTestScheduler(t, notifier)

	r := New("overdue", time.Now().UTC().Add(-time.Millisecond).Format(time.RFC3339), "user@example.com")
	require.NoError(t, sched.Add(r))

	// Add fires synchronously for past-due reminders: no timer, no record.
	assert.Equal(t, 1, notifier.sendCount())
	assert.Equal(t, 0, sched.ActiveTimerCount())
	assert.Equal(t, 0, store.Count())
}

func TestScheduler_AtMostOneFire(t *testing.T) {
	t.Parallel()

	const n = 20
	notifier := &mockNotifier{}
	sched, store := newTestScheduler(t, notifier)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := New(
				fmt.Sprintf("reminder %d", i),
				time.Now().UTC().Add(time.Duration(30+i)*time.Millisecond).Format(time.RFC3339Nano),
				"user@example.com",
			)
			if err := sched.Add(r); err != nil {
				t.Errorf("Add: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return notifier.sendCount() == n && store.Count() == 0
	}, 5*time.Second, 10*time.Millisecond)

	// No duplicates and no leftover timers.
	assert.Equal(t, n, notifier.sendCount())
	assert.Equal(t, 0, sched.ActiveTimerCount())
}

func TestScheduler_NearImmediateFireLeavesNoStaleTimer(t *testing.T) {
	t.Parallel()

	const n = 50
	notifier := &mockNotifier{}
	sched, store := newTestScheduler(t, notifier)

	// Sub-millisecond delays make the timer elapse essentially as soon as it
	// is armed, racing the fire callback's cleanup against registration.
	for i := 0; i < n; i++ {
		r := New(
			fmt.Sprintf("now-ish %d", i),
			time.Now().UTC().Add(time.Millisecond).Format(time.RFC3339Nano),
			"user@example.com",
		)
		require.NoError(t, sched.Add(r))
	}

	require.Eventually(t, func() bool {
		return notifier.sendCount() == n && store.Count() == 0
	}, 5*time.Second, 5*time.Millisecond)

	// Cleanup runs after registration, so no table entry survives and no
	// later Cancel can claim one.
	assert.Equal(t, 0, sched.ActiveTimerCount())
	cancelled, err := sched.Cancel("rem-never-was")
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestScheduler_Cancel(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	sched, store := newTestScheduler(t, notifier)

	r := New("to cancel", time.Now().UTC().Add(time.Hour).Format(time.RFC3339), "user@example.com")
	require.NoError(t, sched.Add(r))

	cancelled, err := sched.Cancel(r.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.Equal(t, 0, sched.ActiveTimerCount())
	assert.Equal(t, 0, store.Count())
	assert.Zero(t, notifier.sendCount())
}

func TestScheduler_CancelUnknownID(t *testing.T) {
	t.Parallel()

	sched, _ := newTestScheduler(t, &mockNotifier{})
	cancelled, err := sched.Cancel("rem-does-not-exist")
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestScheduler_RescheduleReplacesTimer(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	sched, _ := newTestScheduler(t, notifier)

	r := New("dup", time.Now().UTC().Add(50*time.Millisecond).Format(time.RFC3339Nano), "user@example.com")
	require.NoError(t, sched.Add(r))
	// A concurrent reload may schedule the same record again; the second
	// timer must replace the first so the reminder fires exactly once.
	sched.Schedule(r)
	assert.Equal(t, 1, sched.ActiveTimerCount())

	require.Eventually(t, func() bool { return notifier.sendCount() > 0 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, notifier.sendCount())
}

func TestScheduler_CancelAllKeepsStorage(t *testing.T) {
	t.Parallel()

	sched, store := newTestScheduler(t, &mockNotifier{})
	for i := 0; i < 3; i++ {
		r := New(fmt.Sprintf("r%d", i), time.Now().UTC().Add(time.Hour).Format(time.RFC3339), "user@example.com")
		require.NoError(t, sched.Add(r))
	}

	assert.Equal(t, 3, sched.CancelAll())
	assert.Equal(t, 0, sched.ActiveTimerCount())
	// Shutdown is not permanent cancellation: records stay for reload.
	assert.Equal(t, 3, store.Count())
}

func TestScheduler_StartReschedulesPersisted(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	sched, store := newTestScheduler(t, notifier)

	past := New("past due", time.Now().UTC().Add(-time.Minute).Format(time.RFC3339), "user@example.com")
	future := New("future", time.Now().UTC().Add(time.Hour).Format(time.RFC3339), "user@example.com")
	require.NoError(t, store.Add(past))
	require.NoError(t, store.Add(future))

	sched.Start()

	// The past-due record fired during the pass; the future one got a timer.
	assert.Equal(t, 1, notifier.sendCount())
	assert.Equal(t, 1, sched.ActiveTimerCount())
	assert.Equal(t, 1, store.Count())
}

func TestScheduler_BlockedRecipientStillCleansUp(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	sched, store := newTestScheduler(t, notifier)

	r := New("psst", time.Now().UTC().Add(-time.Second).Format(time.RFC3339), "intruder@evil.example")
	require.NoError(t, sched.Add(r))

	assert.Zero(t, notifier.sendCount(), "non-whitelisted recipient must be suppressed")
	assert.Equal(t, 0, store.Count(), "blocked reminder must still be removed")
}

func TestScheduler_SendFailureStillRemovesRecord(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{err: errors.New("smtp down")}
	sched, store := newTestScheduler(t, notifier)

	r := New("doomed", time.Now().UTC().Add(-time.Second).Format(time.RFC3339), "user@example.com")
	require.NoError(t, sched.Add(r))

	assert.Equal(t, 1, notifier.sendCount())
	assert.Equal(t, 0, store.Count(), "failed send must not leave the reminder stuck for retry")
}

func TestScheduler_UnparseableDatetimeLeavesRecordStalled(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	sched, store := newTestScheduler(t, notifier)

	r := Reminder{ID: "rem-bad", Message: "bad time", Datetime: "whenever", ReplyTo: "user@example.com", CreatedAt: "2026-01-01T00:00:00Z"}
	require.NoError(t, store.Add(r))
	sched.Schedule(r)

	assert.Zero(t, notifier.sendCount())
	assert.Equal(t, 0, sched.ActiveTimerCount())
	assert.Equal(t, 1, store.Count(), "unparseable record stays in storage for inspection")
}

func TestScheduler_ActivityLogged(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	store := NewStore(filepath.Join(t.TempDir(), "reminders.json"), nil, nil)
	activity := &mockActivityLog{}
	sched := NewScheduler(Config{
		Location:          time.UTC,
		AllowedRecipients: []string{"user@example.com"},
	}, store, notifier, activity, nil, nil)

	r := New("walk the dog", time.Now().UTC().Add(-time.Second).Format(time.RFC3339), "user@example.com")
	require.NoError(t, sched.Add(r))

	activity.mu.Lock()
	defer activity.mu.Unlock()
	require.Len(t, activity.entries, 1)
	assert.Equal(t, "user@example.com: walk the dog", activity.entries[0])
}

func TestScheduler_ActivityLogFailureDoesNotBlockSend(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	store := NewStore(filepath.Join(t.TempDir(), "reminders.json"), nil, nil)
	activity := &mockActivityLog{err: errors.New("log file locked")}
	sched := NewScheduler(Config{
		Location:          time.UTC,
		AllowedRecipients: []string{"user@example.com"},
	}, store, notifier, activity, nil, nil)

	r := New("still goes out", time.Now().UTC().Add(-time.Second).Format(time.RFC3339), "user@example.com")
	require.NoError(t, sched.Add(r))

	assert.Equal(t, 1, notifier.sendCount())
}
