// Package userdata stores per-user named lists and todos in one JSON file.
package userdata

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"iris/internal/metrics"
	"iris/internal/shared/logging"
	id "iris/internal/shared/utils/id"
	"iris/internal/storage"
)

// Todo is a single todo item. DueDate, when set, is a plain YYYY-MM-DD date.
type Todo struct {
	ID                 string `json:"id"`
	Text               string `json:"text"`
	Done               bool   `json:"done"`
	CreatedAt          string `json:"created_at"`
	CompletedAt        string `json:"completed_at,omitempty"`
	DueDate            string `json:"due_date,omitempty"`
	ReminderDaysBefore int    `json:"reminder_days_before,omitempty"`
}

// Record is everything stored for one user.
type Record struct {
	Lists map[string][]string `json:"lists"`
	Todos []Todo              `json:"todos"`
}

// ListSummary describes one named list.
type ListSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NormalizeEmail canonicalizes an address for use as a storage key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Store persists user records as a single JSON object file keyed by
// normalized email. One lock serializes every mutation.
type Store struct {
	path    string
	loc     *time.Location
	logger  logging.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewStore creates a user-data store backed by the JSON file at path. loc is
// the timezone stamped on new todos; nil means the process-local zone.
func NewStore(path string, loc *time.Location, logger logging.Logger, m *metrics.Metrics) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{path: path, loc: loc, logger: logging.OrNop(logger), metrics: m}
}

func (s *Store) loadLocked() map[string]*Record {
	var records map[string]*Record
	if !storage.LoadJSON(s.path, &records, s.logger) || records == nil {
		return map[string]*Record{}
	}
	return records
}

func (s *Store) saveLocked(records map[string]*Record) error {
	if err := storage.WriteJSON(s.path, records); err != nil {
		s.metrics.StoreWriteFailure("user_data")
		return fmt.Errorf("save user data: %w", err)
	}
	return nil
}

// recordFor returns the user's record, creating it lazily.
func recordFor(records map[string]*Record, email string) *Record {
	key := NormalizeEmail(email)
	rec, ok := records[key]
	if !ok {
		rec = &Record{Lists: map[string][]string{}}
		records[key] = rec
	}
	if rec.Lists == nil {
		rec.Lists = map[string][]string{}
	}
	return rec
}

// Lists returns the user's named lists.
func (s *Store) Lists(email string) map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.loadLocked()[NormalizeEmail(email)]
	if !ok || rec.Lists == nil {
		return map[string][]string{}
	}
	return rec.Lists
}

// ListNames returns a summary of every list, sorted by name.
func (s *Store) ListNames(email string) []ListSummary {
	lists := s.Lists(email)
	summaries := make([]ListSummary, 0, len(lists))
	for name, items := range lists {
		summaries = append(summaries, ListSummary{Name: name, Count: len(items)})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

// List returns the items of one named list.
func (s *Store) List(email, name string) []string {
	items := s.Lists(email)[name]
	if items == nil {
		return []string{}
	}
	return items
}

// AddToList appends an item to a named list, creating the list if needed, and
// returns the list's new length.
func (s *Store) AddToList(email, name, item string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadLocked()
	rec := recordFor(records, email)
	rec.Lists[name] = append(rec.Lists[name], item)
	if err := s.saveLocked(records); err != nil {
		return 0, err
	}
	return len(rec.Lists[name]), nil
}

// RemoveFromList removes the first item matching case-insensitively. Items
// keep their original casing in storage; only the match is relaxed.
func (s *Store) RemoveFromList(email, name, item string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadLocked()
	rec, ok := records[NormalizeEmail(email)]
	if !ok || rec.Lists == nil {
		return false, nil
	}
	items, ok := rec.Lists[name]
	if !ok {
		return false, nil
	}
	for i, existing := range items {
		if strings.EqualFold(existing, item) {
			rec.Lists[name] = append(items[:i], items[i+1:]...)
			if err := s.saveLocked(records); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Todos returns the user's todos, optionally including completed ones.
func (s *Store) Todos(email string, includeDone bool) []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.loadLocked()[NormalizeEmail(email)]
	if !ok {
		return []Todo{}
	}
	todos := make([]Todo, 0, len(rec.Todos))
	for _, todo := range rec.Todos {
		if includeDone || !todo.Done {
			todos = append(todos, todo)
		}
	}
	return todos
}

// AddTodo creates a todo item. dueDate and reminderDaysBefore are optional
// scheduling hints validated by the caller; pass "" and 0 to omit them.
func (s *Store) AddTodo(email, text, dueDate string, reminderDaysBefore int) (Todo, error) {
	todo := Todo{
		ID:                 id.NewUUID(),
		Text:               text,
		CreatedAt:          time.Now().In(s.loc).Format(time.RFC3339),
		DueDate:            dueDate,
		ReminderDaysBefore: reminderDaysBefore,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadLocked()
	rec := recordFor(records, email)
	rec.Todos = append(rec.Todos, todo)
	if err := s.saveLocked(records); err != nil {
		return Todo{}, err
	}
	return todo, nil
}

// CompleteTodo marks a todo done by ID, reporting whether it existed.
func (s *Store) CompleteTodo(email, todoID string) (Todo, bool, error) {
	return s.complete(email, func(t Todo) bool { return t.ID == todoID })
}

// CompleteTodoByText marks done the first not-done todo whose text contains
// the query (case-insensitive).
func (s *Store) CompleteTodoByText(email, query string) (Todo, bool, error) {
	query = strings.ToLower(query)
	return s.complete(email, func(t Todo) bool {
		return !t.Done && strings.Contains(strings.ToLower(t.Text), query)
	})
}

func (s *Store) complete(email string, match func(Todo) bool) (Todo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadLocked()
	rec, ok := records[NormalizeEmail(email)]
	if !ok {
		return Todo{}, false, nil
	}
	for i := range rec.Todos {
		if match(rec.Todos[i]) {
			rec.Todos[i].Done = true
			rec.Todos[i].CompletedAt = time.Now().In(s.loc).Format(time.RFC3339)
			if err := s.saveLocked(records); err != nil {
				return Todo{}, false, err
			}
			return rec.Todos[i], true, nil
		}
	}
	return Todo{}, false, nil
}

// DeleteTodo removes a todo by ID, reporting whether it existed.
func (s *Store) DeleteTodo(email, todoID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadLocked()
	rec, ok := records[NormalizeEmail(email)]
	if !ok {
		return false, nil
	}
	for i := range rec.Todos {
		if rec.Todos[i].ID == todoID {
			rec.Todos = append(rec.Todos[:i], rec.Todos[i+1:]...)
			if err := s.saveLocked(records); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
