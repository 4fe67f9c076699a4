package tools

import (
	"context"

	"iris/internal/diary"
	"iris/internal/shared/utils/id"
)

// DiaryTools exposes diary entries to the assistant.
type DiaryTools struct {
	store *diary.Store
}

// NewDiaryTools wires the diary tool set.
func NewDiaryTools(store *diary.Store) *DiaryTools {
	return &DiaryTools{store: store}
}

// QueryDiary returns the user's most recent diary entries, newest week first.
func (t *DiaryTools) QueryDiary(ctx context.Context, limit int) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	if limit <= 0 {
		limit = 4
	}

	entries := t.store.EntriesForUser(userEmail, limit)
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"week_id":    e.WeekID,
			"week_start": e.WeekStart,
			"week_end":   e.WeekEnd,
			"content":    e.Content,
		})
	}
	return Success("Diary entries", map[string]any{"entries": out, "count": len(out)})
}
