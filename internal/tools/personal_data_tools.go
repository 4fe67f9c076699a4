package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"iris/internal/reminder"
	"iris/internal/shared/logging"
	"iris/internal/shared/utils/id"
	"iris/internal/userdata"
)

// PersonalDataTools exposes lists and todos to the assistant.
type PersonalDataTools struct {
	users     *userdata.Store
	scheduler *reminder.Scheduler
	loc       *time.Location
	logger    logging.Logger
}

// NewPersonalDataTools wires the personal-data tool set. scheduler may be nil
// when due-date reminders are disabled.
func NewPersonalDataTools(users *userdata.Store, scheduler *reminder.Scheduler, loc *time.Location, logger logging.Logger) *PersonalDataTools {
	if loc == nil {
		loc = time.Local
	}
	return &PersonalDataTools{users: users, scheduler: scheduler, loc: loc, logger: logging.OrNop(logger)}
}

// GetLists summarizes the user's named lists.
func (t *PersonalDataTools) GetLists(ctx context.Context) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	summaries := t.users.ListNames(userEmail)
	lists := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		lists = append(lists, map[string]any{"name": s.Name, "count": s.Count})
	}
	return Success("Your lists", map[string]any{"lists": lists, "count": len(lists)})
}

// GetList returns the items of one list.
func (t *PersonalDataTools) GetList(ctx context.Context, name string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	items := t.users.List(userEmail, name)
	return Success("Items in "+name, map[string]any{"items": items, "count": len(items)})
}

// AddToList appends an item to a named list.
func (t *PersonalDataTools) AddToList(ctx context.Context, name, item string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(item) == "" {
		return Errorf("both list name and item are required")
	}
	count, err := t.users.AddToList(userEmail, name, item)
	if err != nil {
		return Errorf("failed to add to list: %v", err)
	}
	return Success(fmt.Sprintf("Added %q to %s", item, name), map[string]any{"count": count})
}

// RemoveFromList removes an item from a named list.
func (t *PersonalDataTools) RemoveFromList(ctx context.Context, name, item string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	removed, err := t.users.RemoveFromList(userEmail, name, item)
	if err != nil {
		return Errorf("failed to remove from list: %v", err)
	}
	if !removed {
		return Errorf("%q is not on %s", item, name)
	}
	return Success(fmt.Sprintf("Removed %q from %s", item, name), nil)
}

// AddTodoItem creates a todo. With a due date, a non-negative reminder offset
// and a reply address present, it also schedules a reminder for 09:00 local
// on (due - offset) days, but only when that instant is still in the future.
// A reminder failure never blocks the todo itself.
func (t *PersonalDataTools) AddTodoItem(ctx context.Context, text, dueDate string, reminderDaysBefore int) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	if strings.TrimSpace(text) == "" {
		return Errorf("todo text cannot be empty")
	}
	if reminderDaysBefore < 0 {
		return Errorf("reminder_days_before cannot be negative")
	}
	if dueDate != "" {
		if _, err := time.ParseInLocation("2006-01-02", dueDate, t.loc); err != nil {
			return Errorf("due date must be YYYY-MM-DD, got %q", dueDate)
		}
	}

	todo, err := t.users.AddTodo(userEmail, text, dueDate, reminderDaysBefore)
	if err != nil {
		return Errorf("failed to add todo: %v", err)
	}

	fields := map[string]any{"todo_id": todo.ID}
	if dueDate != "" {
		fields["due_date"] = dueDate
		if msg := t.scheduleDueReminder(ctx, todo); msg != "" {
			fields["reminder"] = msg
		}
	}
	return Success(fmt.Sprintf("Added todo %q", text), fields)
}

// scheduleDueReminder arms the 09:00 due-date reminder for a todo when the
// preconditions hold. It returns a short note for the tool result, or "" when
// no reminder applies.
func (t *PersonalDataTools) scheduleDueReminder(ctx context.Context, todo userdata.Todo) string {
	if t.scheduler == nil {
		return ""
	}
	replyTo := id.ReplyToFromContext(ctx)
	if replyTo == "" {
		return ""
	}

	due, err := time.ParseInLocation("2006-01-02", todo.DueDate, t.loc)
	if err != nil {
		return ""
	}
	remindAt := due.AddDate(0, 0, -todo.ReminderDaysBefore).
		Add(9 * time.Hour)
	if !remindAt.After(time.Now().In(t.loc)) {
		return ""
	}

	r := reminder.New(fmt.Sprintf("Todo due %s: %s", todo.DueDate, todo.Text), remindAt.Format(time.RFC3339), replyTo)
	if err := t.scheduler.Add(r); err != nil {
		t.logger.Warn("Todo %s created but its reminder failed: %v", todo.ID, err)
		return ""
	}
	return "reminder set for " + remindAt.Format("2006-01-02 15:04")
}

// CompleteTodoItem marks a todo done by ID, falling back to a case-insensitive
// text match.
func (t *PersonalDataTools) CompleteTodoItem(ctx context.Context, idOrText string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	if strings.TrimSpace(idOrText) == "" {
		return Errorf("say which todo to complete")
	}

	todo, ok, err := t.users.CompleteTodo(userEmail, idOrText)
	if err != nil {
		return Errorf("failed to complete todo: %v", err)
	}
	if !ok {
		todo, ok, err = t.users.CompleteTodoByText(userEmail, idOrText)
		if err != nil {
			return Errorf("failed to complete todo: %v", err)
		}
	}
	if !ok {
		return Errorf("no pending todo matches %q", idOrText)
	}
	return Success(fmt.Sprintf("Completed %q", todo.Text), map[string]any{"todo_id": todo.ID})
}

// DeleteTodoItem removes a todo by ID.
func (t *PersonalDataTools) DeleteTodoItem(ctx context.Context, todoID string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	deleted, err := t.users.DeleteTodo(userEmail, todoID)
	if err != nil {
		return Errorf("failed to delete todo: %v", err)
	}
	if !deleted {
		return Errorf("no todo with ID %s", todoID)
	}
	return Success("Todo deleted", map[string]any{"todo_id": todoID})
}

// GetUserTodos returns the user's todos.
func (t *PersonalDataTools) GetUserTodos(ctx context.Context, includeDone bool) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	todos := t.users.Todos(userEmail, includeDone)
	out := make([]map[string]any, 0, len(todos))
	for _, todo := range todos {
		m := map[string]any{
			"todo_id": todo.ID,
			"text":    todo.Text,
			"done":    todo.Done,
		}
		if todo.DueDate != "" {
			m["due_date"] = todo.DueDate
		}
		out = append(out, m)
	}
	return Success("Your todos", map[string]any{"todos": out, "count": len(out)})
}
