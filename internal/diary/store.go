// Package diary persists weekly diary entries and the reminder activity log
// that feeds them.
package diary

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"iris/internal/metrics"
	"iris/internal/reminder"
	"iris/internal/shared/logging"
	"iris/internal/shared/utils/id"
	"iris/internal/storage"
)

// Entry is one user's diary entry for one ISO week. Sources keeps the raw
// activity the narrative was built from, keyed by category ("todos",
// "reminders", "calendar"), so provenance survives alongside the prose.
type Entry struct {
	ID        string              `json:"id"`
	UserEmail string              `json:"user_email"`
	WeekID    string              `json:"week_id"`
	WeekStart string              `json:"week_start"`
	WeekEnd   string              `json:"week_end"`
	Content   string              `json:"content"`
	Sources   map[string][]string `json:"sources"`
	CreatedAt string              `json:"created_at"`
}

// firedReminder is one activity-log record: a reminder that actually went out.
type firedReminder struct {
	User    string `json:"user"`
	Message string `json:"message"`
	FiredAt string `json:"fired_at"`
}

// Store persists diary entries (JSON object, email → entries) and the
// reminder activity log (JSON array) as two files under one lock. The
// activity log is written on the reminder fire path and read back during
// diary generation, so both sides serialize on the same mutex.
type Store struct {
	entriesPath  string
	activityPath string
	loc          *time.Location
	logger       logging.Logger
	metrics      *metrics.Metrics

	mu sync.Mutex
}

// NewStore creates a diary store. loc is the timezone assumed for offset-less
// activity timestamps; nil means the process-local zone.
func NewStore(entriesPath, activityPath string, loc *time.Location, logger logging.Logger, m *metrics.Metrics) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		entriesPath:  entriesPath,
		activityPath: activityPath,
		loc:          loc,
		logger:       logging.OrNop(logger),
		metrics:      m,
	}
}

func (s *Store) loadEntriesLocked() map[string][]Entry {
	var entries map[string][]Entry
	if !storage.LoadJSON(s.entriesPath, &entries, s.logger) || entries == nil {
		return map[string][]Entry{}
	}
	return entries
}

func (s *Store) saveEntriesLocked(entries map[string][]Entry) error {
	if err := storage.WriteJSON(s.entriesPath, entries); err != nil {
		s.metrics.StoreWriteFailure("diary")
		return fmt.Errorf("save diary: %w", err)
	}
	return nil
}

// SaveEntry upserts the entry for its (user, week). A regenerated week
// replaces the earlier entry rather than duplicating it.
func (s *Store) SaveEntry(entry Entry) error {
	if entry.ID == "" {
		entry.ID = id.NewKSUID()
	}
	if entry.CreatedAt == "" {
		entry.CreatedAt = time.Now().In(s.loc).Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.loadEntriesLocked()
	userEntries := entries[entry.UserEmail]
	replaced := false
	for i := range userEntries {
		if userEntries[i].WeekID == entry.WeekID {
			userEntries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		userEntries = append(userEntries, entry)
	}
	entries[entry.UserEmail] = userEntries
	return s.saveEntriesLocked(entries)
}

// EntriesForUser returns up to limit entries, newest week first. limit <= 0
// means all.
func (s *Store) EntriesForUser(email string, limit int) []Entry {
	s.mu.Lock()
	entries := s.loadEntriesLocked()[email]
	s.mu.Unlock()

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].WeekID > sorted[j].WeekID })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Entry returns the user's entry for one week, if present.
func (s *Store) Entry(email, weekID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.loadEntriesLocked()[email] {
		if entry.WeekID == weekID {
			return entry, true
		}
	}
	return Entry{}, false
}

// LogFired appends a fired-reminder record to the activity log. It implements
// the scheduler's activity sink.
func (s *Store) LogFired(userEmail, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var log []firedReminder
	storage.LoadJSON(s.activityPath, &log, s.logger)
	log = append(log, firedReminder{
		User:    userEmail,
		Message: message,
		FiredAt: time.Now().In(s.loc).Format(time.RFC3339),
	})
	if err := storage.WriteJSON(s.activityPath, log); err != nil {
		s.metrics.StoreWriteFailure("reminder_activity")
		return fmt.Errorf("save reminder activity: %w", err)
	}
	return nil
}

var _ reminder.ActivityLog = (*Store)(nil)

// MessagesInRange returns the messages of reminders fired for email within
// [start, end]. Offset-less timestamps are interpreted in the store's
// location; malformed records are skipped.
func (s *Store) MessagesInRange(email string, start, end time.Time) []string {
	s.mu.Lock()
	var log []firedReminder
	storage.LoadJSON(s.activityPath, &log, s.logger)
	s.mu.Unlock()

	var messages []string
	for _, rec := range log {
		if rec.User != email {
			continue
		}
		firedAt, err := reminder.ParseTimestamp(rec.FiredAt, s.loc)
		if err != nil {
			s.logger.Warn("Skipping activity record with bad timestamp %q: %v", rec.FiredAt, err)
			continue
		}
		if firedAt.Before(start) || firedAt.After(end) {
			continue
		}
		messages = append(messages, rec.Message)
	}
	return messages
}
