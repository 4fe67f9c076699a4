package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"iris/internal/metrics"
	"iris/internal/shared/logging"
)

// Notifier delivers a fired reminder to its recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ActivityLog records fired reminders for later diary aggregation.
type ActivityLog interface {
	LogFired(userEmail, message string) error
}

// Config holds Scheduler runtime configuration.
type Config struct {
	// Location is the timezone applied to offset-less reminder timestamps.
	Location *time.Location
	// AllowedRecipients is the whitelist a reminder's reply address must be
	// on for the notification to be sent. Matching is case-insensitive.
	AllowedRecipients []string
}

// Scheduler owns the in-memory table of armed reminder timers and drives the
// reminder lifecycle: persist, arm, fire once, clean up. The timer table has
// its own lock, distinct from the store's, so timer bookkeeping never blocks
// file I/O and vice versa. No operation holds both locks at once.
type Scheduler struct {
	store    *Store
	notifier Notifier
	activity ActivityLog
	allowed  map[string]struct{}
	loc      *time.Location
	logger   logging.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewScheduler creates a Scheduler. The activity log may be nil when diary
// aggregation is disabled.
func NewScheduler(cfg Config, store *Store, notifier Notifier, activity ActivityLog, logger logging.Logger, m *metrics.Metrics) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedRecipients))
	for _, addr := range cfg.AllowedRecipients {
		allowed[strings.ToLower(strings.TrimSpace(addr))] = struct{}{}
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		activity: activity,
		allowed:  allowed,
		loc:      loc,
		logger:   logging.OrNop(logger),
		metrics:  m,
		timers:   make(map[string]*time.Timer),
	}
}

// Add persists the reminder first, then schedules it. Persist-first means a
// crash between the two steps is recovered by Start on the next boot;
// scheduling happens outside the store lock so timer work never blocks
// unrelated store callers.
func (s *Scheduler) Add(r Reminder) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid reminder: %w", err)
	}
	if err := s.store.Add(r); err != nil {
		return fmt.Errorf("persist reminder: %w", err)
	}
	s.Schedule(r)
	return nil
}

// Schedule computes the fire delay for r and either fires it synchronously
// (past due, including exactly now) or arms a one-shot timer. Re-scheduling
// an ID that already has a timer replaces the old timer, so at most one timer
// is ever live per reminder ID. An unparseable datetime is logged and the
// record left in storage untouched: it will not fire until inspected.
func (s *Scheduler) Schedule(r Reminder) {
	target, err := ParseTimestamp(r.Datetime, s.loc)
	if err != nil {
		s.logger.Error("Cannot schedule reminder %s: %v", r.ID, err)
		return
	}

	// Both sides are zone-aware here; Sub saturates on overflow, so dates
	// centuries out degrade to the maximum representable delay instead of
	// wrapping.
	delay := target.Sub(time.Now().In(s.loc))
	if delay <= 0 {
		s.logger.Info("Reminder %s past due, firing immediately", r.ID)
		s.fire(r)
		return
	}

	// Armed while holding the lock: the fire callback's cleanup also takes
	// it, so even a near-zero delay cannot fire before the timer is in the
	// table and leave a stale entry behind.
	s.mu.Lock()
	if old, ok := s.timers[r.ID]; ok {
		old.Stop()
		s.metrics.TimerReleased()
	}
	s.timers[r.ID] = time.AfterFunc(delay, func() { s.fire(r) })
	s.mu.Unlock()

	s.metrics.ReminderScheduled()
	s.logger.Info("Scheduled reminder %s in %.0fs: %.30s", r.ID, delay.Seconds(), r.Message)
}

// fire delivers the reminder. It runs on a timer goroutine, so it must never
// panic or return an error: every failure is logged and swallowed. Whatever
// happens on the send path, the deferred cleanup removes the reminder from
// storage and from the timer table, so a reminder fires at most once and is
// never retried after a permanent failure.
func (s *Scheduler) fire(r Reminder) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Panic while firing reminder %s: %v", r.ID, p)
		}
	}()
	defer func() {
		if _, err := s.store.Remove(r.ID); err != nil {
			s.logger.Error("Cleaning up reminder %s from storage: %v", r.ID, err)
		}
		s.mu.Lock()
		if timer, ok := s.timers[r.ID]; ok {
			timer.Stop()
			delete(s.timers, r.ID)
			s.metrics.TimerReleased()
		}
		s.mu.Unlock()
	}()

	if _, ok := s.allowed[strings.ToLower(r.ReplyTo)]; !ok {
		s.logger.Warn("Blocked reminder %s to non-whitelisted recipient %s", r.ID, r.ReplyTo)
		s.metrics.ReminderFired("blocked")
		return
	}

	if s.activity != nil {
		if err := s.activity.LogFired(r.ReplyTo, r.Message); err != nil {
			// A log failure must not stop the reminder itself.
			s.logger.Warn("Failed to log fired reminder %s: %v", r.ID, err)
		}
	}

	subject := fmt.Sprintf("⏰ %s", r.Message)
	body := fmt.Sprintf("This is your reminder: %s\n\nOriginally set: %s", r.Message, r.CreatedAt)
	if err := s.notifier.Send(context.Background(), r.ReplyTo, subject, body); err != nil {
		s.logger.Error("Sending reminder %s to %s: %v", r.ID, r.ReplyTo, err)
		s.metrics.ReminderFired("send_failed")
		return
	}

	s.metrics.ReminderFired("sent")
	s.logger.Info("Reminder fired: %.30s -> %s", r.Message, r.ReplyTo)
}

// Cancel stops the armed timer for reminderID, if any, and removes the
// persisted record. It reports whether either existed.
func (s *Scheduler) Cancel(reminderID string) (bool, error) {
	cancelled := false

	s.mu.Lock()
	if timer, ok := s.timers[reminderID]; ok {
		timer.Stop()
		delete(s.timers, reminderID)
		cancelled = true
	}
	s.mu.Unlock()

	if cancelled {
		s.metrics.ReminderCancelled()
		s.metrics.TimerReleased()
	}

	removed, err := s.store.Remove(reminderID)
	if err != nil {
		return cancelled, err
	}
	return cancelled || removed, nil
}

// CancelAll stops every armed timer and returns how many were stopped. It
// deliberately leaves persisted records alone: on the next startup they are
// reloaded and rescheduled. Shutdown is not permanent cancellation.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	count := len(s.timers)
	for reminderID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, reminderID)
		s.metrics.TimerReleased()
	}
	s.mu.Unlock()
	if count > 0 {
		s.logger.Info("Cancelled %d active reminder timer(s)", count)
	}
	return count
}

// Start reloads persisted reminders and schedules each one. Past-due
// reminders fire during this pass. Each record is handled independently, so
// one bad record never blocks recovery of the rest.
func (s *Scheduler) Start() {
	reminders := s.store.LoadAll()
	if len(reminders) == 0 {
		return
	}
	s.logger.Info("Loading %d existing reminder(s)", len(reminders))
	for _, r := range reminders {
		s.Schedule(r)
	}
}

// ActiveTimerCount reports the number of currently armed timers.
func (s *Scheduler) ActiveTimerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
