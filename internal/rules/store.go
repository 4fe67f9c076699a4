package rules

import (
	"fmt"
	"sync"
	"time"

	"iris/internal/metrics"
	"iris/internal/shared/logging"
	"iris/internal/storage"
)

// Store persists rules as a JSON object file, email → rules.
type Store struct {
	path    string
	logger  logging.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewStore creates a rule store backed by the JSON file at path.
func NewStore(path string, logger logging.Logger, m *metrics.Metrics) *Store {
	return &Store{path: path, logger: logging.OrNop(logger), metrics: m}
}

func (s *Store) loadLocked() map[string][]Rule {
	var rules map[string][]Rule
	if !storage.LoadJSON(s.path, &rules, s.logger) || rules == nil {
		return map[string][]Rule{}
	}
	return rules
}

func (s *Store) saveLocked(rules map[string][]Rule) error {
	if err := storage.WriteJSON(s.path, rules); err != nil {
		s.metrics.StoreWriteFailure("rules")
		return fmt.Errorf("save rules: %w", err)
	}
	return nil
}

// Add appends a rule under its user.
func (s *Store) Add(r Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.loadLocked()
	rules[r.UserEmail] = append(rules[r.UserEmail], r)
	return s.saveLocked(rules)
}

// ForUser returns every rule owned by email.
func (s *Store) ForUser(email string) []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()[email]
}

// All returns every stored rule across users.
func (s *Store) All() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []Rule
	for _, userRules := range s.loadLocked() {
		all = append(all, userRules...)
	}
	return all
}

// Delete removes a user's rule by ID, reporting whether it existed.
func (s *Store) Delete(email, ruleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.loadLocked()
	userRules := rules[email]
	for i := range userRules {
		if userRules[i].ID == ruleID {
			rules[email] = append(userRules[:i], userRules[i+1:]...)
			if err := s.saveLocked(rules); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// UpdateLastFired stamps the rule's last execution time.
func (s *Store) UpdateLastFired(email, ruleID string, firedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.loadLocked()
	userRules := rules[email]
	for i := range userRules {
		if userRules[i].ID == ruleID {
			userRules[i].LastFired = firedAt.Format(time.RFC3339)
			return s.saveLocked(rules)
		}
	}
	return fmt.Errorf("rule %s not found for %s", ruleID, email)
}
