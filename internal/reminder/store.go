package reminder

import (
	"fmt"
	"sync"

	"iris/internal/metrics"
	"iris/internal/shared/logging"
	"iris/internal/storage"
)

// Store persists pending reminders as a single JSON array file. Every
// mutation is a load → mutate → atomic-rewrite cycle under one lock, so
// concurrent callers are serialized and the file is always a complete
// document. Cost per mutation is linear in the number of pending reminders,
// which is fine at assistant scale.
type Store struct {
	path    string
	logger  logging.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewStore creates a reminder store backed by the JSON file at path.
func NewStore(path string, logger logging.Logger, m *metrics.Metrics) *Store {
	return &Store{path: path, logger: logging.OrNop(logger), metrics: m}
}

// loadLocked reads the collection, returning an empty slice on any read
// failure. Must be called with s.mu held.
func (s *Store) loadLocked() []Reminder {
	var reminders []Reminder
	if !storage.LoadJSON(s.path, &reminders, s.logger) {
		return nil
	}
	return reminders
}

// saveLocked rewrites the whole collection. Must be called with s.mu held.
func (s *Store) saveLocked(reminders []Reminder) error {
	if reminders == nil {
		reminders = []Reminder{}
	}
	if err := storage.WriteJSON(s.path, reminders); err != nil {
		s.metrics.StoreWriteFailure("reminders")
		return fmt.Errorf("save reminders: %w", err)
	}
	return nil
}

// Add appends a reminder to the collection.
func (s *Store) Add(r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders := s.loadLocked()
	reminders = append(reminders, r)
	return s.saveLocked(reminders)
}

// Remove deletes every stored record with the given ID. It reports whether
// anything was removed. Duplicate IDs are not prevented on insert, so a
// single Remove may drop more than one record.
func (s *Store) Remove(reminderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders := s.loadLocked()
	kept := reminders[:0]
	for _, r := range reminders {
		if r.ID != reminderID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(reminders) {
		return false, nil
	}
	if err := s.saveLocked(kept); err != nil {
		return false, err
	}
	return true, nil
}

// LoadAll returns every stored reminder that carries its required fields.
// Records failing validation are logged and skipped individually so one bad
// record cannot block startup recovery for the rest.
func (s *Store) LoadAll() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var valid []Reminder
	for _, r := range s.loadLocked() {
		if err := r.Validate(); err != nil {
			s.logger.Warn("Skipping malformed reminder record %q: %v", r.ID, err)
			continue
		}
		valid = append(valid, r)
	}
	return valid
}

// Count returns the number of persisted reminder records.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loadLocked())
}
