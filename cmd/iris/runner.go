package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"iris/internal/diary"
	"iris/internal/reminder"
	"iris/internal/rules"
	"iris/internal/userdata"
)

// actionRunner dispatches rule actions to the components that implement them.
type actionRunner struct {
	scheduler *reminder.Scheduler
	users     *userdata.Store
	generator *diary.Generator
	notifier  reminder.Notifier
}

func (r *actionRunner) Run(ctx context.Context, rule rules.Rule) error {
	switch rule.Action {
	case "generate_diary":
		_, err := r.generator.GenerateForUser(ctx, rule.UserEmail)
		return err

	case "send_reminder":
		message := rule.Params["message"]
		if message == "" {
			message = rule.Description
		}
		if strings.TrimSpace(message) == "" {
			return fmt.Errorf("rule %s has no message to send", rule.ID)
		}
		return r.scheduler.Add(reminder.New(message, time.Now().Format(time.RFC3339), rule.UserEmail))

	case "weekly_schedule_summary":
		return r.notifier.Send(ctx, rule.UserEmail, "📋 Your week ahead", r.weeklySummary(rule.UserEmail))

	default:
		return fmt.Errorf("rule %s has unhandled action %q", rule.ID, rule.Action)
	}
}

// weeklySummary renders the user's pending todos as a plain-text digest.
func (r *actionRunner) weeklySummary(email string) string {
	var b strings.Builder
	todos := r.users.Todos(email, false)
	if len(todos) == 0 {
		b.WriteString("Nothing pending. Enjoy your week!\n")
		return b.String()
	}
	b.WriteString("Pending todos:\n")
	for _, todo := range todos {
		if todo.DueDate != "" {
			fmt.Fprintf(&b, "  - %s (due %s)\n", todo.Text, todo.DueDate)
		} else {
			fmt.Fprintf(&b, "  - %s\n", todo.Text)
		}
	}
	return b.String()
}

// textNarrator turns a week's activity into a plain-text diary entry. A
// richer narrator (an LLM, say) can be slotted in through the same interface.
type textNarrator struct{}

func (textNarrator) WeeklyNarrative(_ context.Context, activity diary.Activity) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Week of %s.\n", activity.WeekStart.Format("January 2, 2006"))

	if len(activity.CompletedTodos) > 0 {
		fmt.Fprintf(&b, "\nGot done: %s.\n", strings.Join(activity.CompletedTodos, "; "))
	}
	if len(activity.FiredReminders) > 0 {
		fmt.Fprintf(&b, "\nReminders that came up: %s.\n", strings.Join(activity.FiredReminders, "; "))
	}
	if len(activity.CalendarEvents) > 0 {
		fmt.Fprintf(&b, "\nOn the calendar: %s.\n", strings.Join(activity.CalendarEvents, "; "))
	}
	if len(activity.CompletedTodos)+len(activity.FiredReminders)+len(activity.CalendarEvents) == 0 {
		b.WriteString("\nA quiet week with nothing logged.\n")
	}
	return b.String(), nil
}
