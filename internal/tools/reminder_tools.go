package tools

import (
	"context"
	"strings"
	"time"

	"iris/internal/reminder"
	"iris/internal/shared/logging"
	"iris/internal/shared/utils/id"
)

// ReminderTools exposes reminder scheduling to the assistant.
type ReminderTools struct {
	scheduler *reminder.Scheduler
	store     *reminder.Store
	loc       *time.Location
	logger    logging.Logger
}

// NewReminderTools wires the reminder tool set.
func NewReminderTools(scheduler *reminder.Scheduler, store *reminder.Store, loc *time.Location, logger logging.Logger) *ReminderTools {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderTools{scheduler: scheduler, store: store, loc: loc, logger: logging.OrNop(logger)}
}

// CreateReminder schedules a reminder for the requesting user. The reply
// address comes from the request context, never from tool arguments.
func (t *ReminderTools) CreateReminder(ctx context.Context, message, datetime string) Result {
	replyTo := id.ReplyToFromContext(ctx)
	if replyTo == "" {
		return Errorf("no reply address on this request; cannot schedule a reminder")
	}
	if strings.TrimSpace(message) == "" {
		return Errorf("reminder message cannot be empty")
	}
	if _, err := reminder.ParseTimestamp(datetime, t.loc); err != nil {
		return Errorf("cannot understand reminder time %q: %v", datetime, err)
	}

	r := reminder.New(message, datetime, replyTo)
	if err := t.scheduler.Add(r); err != nil {
		return Errorf("failed to schedule reminder: %v", err)
	}
	return Success("Reminder scheduled", map[string]any{
		"reminder_id": r.ID,
		"datetime":    r.Datetime,
	})
}

// CancelReminder cancels a pending reminder by ID.
func (t *ReminderTools) CancelReminder(ctx context.Context, reminderID string) Result {
	if strings.TrimSpace(reminderID) == "" {
		return Errorf("reminder_id is required")
	}
	cancelled, err := t.scheduler.Cancel(reminderID)
	if err != nil {
		return Errorf("failed to cancel reminder: %v", err)
	}
	if !cancelled {
		return Errorf("no pending reminder with ID %s", reminderID)
	}
	return Success("Reminder cancelled", map[string]any{"reminder_id": reminderID})
}

// ListReminders returns the requesting user's pending reminders.
func (t *ReminderTools) ListReminders(ctx context.Context) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}

	var pending []map[string]any
	for _, r := range t.store.LoadAll() {
		if !strings.EqualFold(r.ReplyTo, userEmail) {
			continue
		}
		pending = append(pending, map[string]any{
			"reminder_id": r.ID,
			"message":     r.Message,
			"datetime":    r.Datetime,
		})
	}
	if pending == nil {
		pending = []map[string]any{}
	}
	return Success("Pending reminders", map[string]any{
		"reminders": pending,
		"count":     len(pending),
	})
}
