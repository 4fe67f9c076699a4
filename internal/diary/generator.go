package diary

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"iris/internal/reminder"
	"iris/internal/shared/logging"
	"iris/internal/userdata"
)

// Activity is the raw material for one week's narrative.
type Activity struct {
	UserEmail      string
	WeekStart      time.Time
	WeekEnd        time.Time
	CompletedTodos []string
	FiredReminders []string
	CalendarEvents []string
}

// Calendar supplies external calendar events for the diary.
type Calendar interface {
	EventsInRange(ctx context.Context, email string, start, end time.Time) ([]string, error)
}

// Narrator turns a week of activity into diary prose.
type Narrator interface {
	WeeklyNarrative(ctx context.Context, activity Activity) (string, error)
}

// Generator aggregates a user's weekly activity from the todo store, the
// reminder activity log and an optional calendar, then asks the narrator for
// prose and upserts the result as that week's diary entry.
type Generator struct {
	store    *Store
	users    *userdata.Store
	calendar Calendar
	narrator Narrator
	loc      *time.Location
	logger   logging.Logger
}

// NewGenerator creates a diary generator. calendar may be nil when no
// calendar source is configured.
func NewGenerator(store *Store, users *userdata.Store, calendar Calendar, narrator Narrator, loc *time.Location, logger logging.Logger) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{
		store:    store,
		users:    users,
		calendar: calendar,
		narrator: narrator,
		loc:      loc,
		logger:   logging.OrNop(logger),
	}
}

// GenerateForUser builds the current week's diary entry for email. The three
// activity sources are gathered concurrently; a calendar failure degrades to
// an empty event list, but a narrator failure aborts without writing an
// entry.
func (g *Generator) GenerateForUser(ctx context.Context, email string) (Entry, error) {
	now := time.Now().In(g.loc)
	weekStart, weekEnd := WeekBounds(now)

	activity := Activity{
		UserEmail: email,
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		activity.CompletedTodos = g.completedTodosInRange(email, weekStart, weekEnd)
		return nil
	})
	group.Go(func() error {
		activity.FiredReminders = g.store.MessagesInRange(email, weekStart, weekEnd)
		return nil
	})
	group.Go(func() error {
		if g.calendar == nil {
			return nil
		}
		events, err := g.calendar.EventsInRange(groupCtx, email, weekStart, weekEnd)
		if err != nil {
			g.logger.Warn("Calendar lookup failed for %s, continuing without events: %v", email, err)
			return nil
		}
		activity.CalendarEvents = events
		return nil
	})
	if err := group.Wait(); err != nil {
		return Entry{}, err
	}

	content, err := g.narrator.WeeklyNarrative(ctx, activity)
	if err != nil {
		return Entry{}, fmt.Errorf("narrate week for %s: %w", email, err)
	}

	entry := Entry{
		UserEmail: email,
		WeekID:    WeekID(now),
		WeekStart: weekStart.Format(time.RFC3339),
		WeekEnd:   weekEnd.Format(time.RFC3339),
		Content:   content,
		Sources: map[string][]string{
			"todos":     activity.CompletedTodos,
			"reminders": activity.FiredReminders,
			"calendar":  activity.CalendarEvents,
		},
	}
	if err := g.store.SaveEntry(entry); err != nil {
		return Entry{}, err
	}

	saved, _ := g.store.Entry(email, entry.WeekID)
	g.logger.Info("Diary entry generated for %s week %s", email, entry.WeekID)
	return saved, nil
}

// completedTodosInRange returns the text of todos completed within the
// bounds. Todos without a parseable completion timestamp are skipped.
func (g *Generator) completedTodosInRange(email string, start, end time.Time) []string {
	var completed []string
	for _, todo := range g.users.Todos(email, true) {
		if !todo.Done || todo.CompletedAt == "" {
			continue
		}
		completedAt, err := reminder.ParseTimestamp(todo.CompletedAt, g.loc)
		if err != nil {
			continue
		}
		if completedAt.Before(start) || completedAt.After(end) {
			continue
		}
		completed = append(completed, todo.Text)
	}
	return completed
}
