// Package reminder provides durable, timezone-aware one-shot reminders: a
// JSON-file backed store plus an in-process scheduler that arms a timer per
// pending reminder, fires past-due ones immediately, and recovers scheduled
// state after a restart by reloading the store.
package reminder

import (
	"fmt"
	"strings"
	"time"

	id "iris/internal/shared/utils/id"
)

// Reminder is a scheduled one-shot notification. Datetime and CreatedAt are
// ISO-8601 strings as supplied by callers; Datetime may omit a UTC offset, in
// which case it is interpreted in the configured local timezone at scheduling
// time.
type Reminder struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Datetime  string `json:"datetime"`
	ReplyTo   string `json:"reply_to"`
	CreatedAt string `json:"created_at"`
}

// New creates a reminder with a generated identifier.
func New(message, datetime, replyTo string) Reminder {
	return Reminder{
		ID:        id.NewReminderID(),
		Message:   message,
		Datetime:  datetime,
		ReplyTo:   replyTo,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}

// Validate checks that a reminder has the required fields.
func (r Reminder) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("reminder ID is required")
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("reminder message is required")
	}
	if r.Datetime == "" {
		return fmt.Errorf("reminder datetime is required")
	}
	if r.ReplyTo == "" {
		return fmt.Errorf("reminder reply address is required")
	}
	return nil
}

// timestampLayouts lists accepted ISO-8601 shapes. Offset-carrying layouts
// come first so an explicit zone always wins over the configured default.
var timestampLayouts = []struct {
	layout string
	naive  bool
}{
	{layout: time.RFC3339Nano},
	{layout: time.RFC3339},
	{layout: "2006-01-02T15:04:05-07:00"},
	{layout: "2006-01-02T15:04:05.999999999", naive: true},
	{layout: "2006-01-02T15:04:05", naive: true},
	{layout: "2006-01-02T15:04", naive: true},
	{layout: "2006-01-02", naive: true},
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without offset
// information are interpreted in loc, so the result is always zone-aware and
// safe to compare against time.Now in the same frame.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}
	for _, candidate := range timestampLayouts {
		if candidate.naive {
			if t, err := time.ParseInLocation(candidate.layout, s, loc); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.Parse(candidate.layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
