// Package memory stores long-term facts about users, one JSON file per user.
package memory

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"iris/internal/metrics"
	"iris/internal/shared/logging"
	id "iris/internal/shared/utils/id"
	"iris/internal/storage"
)

// Fact is a single piece of remembered user knowledge, e.g. "Has a cat named
// Oliver" in category "pets".
type Fact struct {
	ID            string   `json:"id"`
	Content       string   `json:"content"`
	Category      string   `json:"category"`
	CreatedAt     string   `json:"created_at"`
	SourceContext string   `json:"source_context"`
	Keywords      []string `json:"keywords"`
}

// maxSourceContext bounds how much of the originating message is kept as
// provenance.
const maxSourceContext = 200

// Store persists facts per user under dir. All mutations serialize on one
// lock and rewrite the owning user's whole file atomically.
type Store struct {
	dir     string
	logger  logging.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewStore creates a fact store rooted at dir.
func NewStore(dir string, logger logging.Logger, m *metrics.Metrics) *Store {
	return &Store{dir: dir, logger: logging.OrNop(logger), metrics: m}
}

// userFile maps an email address to a filesystem-safe per-user filename.
// Path separators are stripped to prevent traversal, and overlong results are
// hashed to stay under filesystem name-length limits while keeping a readable
// prefix.
func (s *Store) userFile(email string) string {
	replacer := strings.NewReplacer("@", "_at_", ".", "_", "/", "_", "\\", "_")
	safe := replacer.Replace(email)

	const maxLength = 200
	if len(safe) > maxLength {
		sum := sha256.Sum256([]byte(email))
		safe = fmt.Sprintf("%.100s_%x", safe, sum[:16])
	}
	return filepath.Join(s.dir, safe+".json")
}

// loadLocked reads a user's facts, returning nil on any read failure. Must be
// called with s.mu held.
func (s *Store) loadLocked(email string) []Fact {
	var facts []Fact
	if !storage.LoadJSON(s.userFile(email), &facts, s.logger) {
		return nil
	}
	return facts
}

func (s *Store) saveLocked(email string, facts []Fact) error {
	if facts == nil {
		facts = []Fact{}
	}
	if err := storage.WriteJSON(s.userFile(email), facts); err != nil {
		s.metrics.StoreWriteFailure("memory")
		return fmt.Errorf("save memory for %s: %w", email, err)
	}
	return nil
}

// Add stores a new fact. Unless allowDuplicate is set, an existing fact with
// the same content and category (case-insensitive) is returned instead of
// creating a second copy. Empty or whitespace-only content is rejected.
func (s *Store) Add(email, content, category, sourceContext string, keywords []string, allowDuplicate bool) (Fact, error) {
	if strings.TrimSpace(content) == "" {
		return Fact{}, fmt.Errorf("fact content cannot be empty or whitespace-only")
	}
	if len(sourceContext) > maxSourceContext {
		sourceContext = sourceContext[:maxSourceContext]
	}
	if keywords == nil {
		keywords = []string{}
	}

	fact := Fact{
		ID:            id.NewFactID(),
		Content:       content,
		Category:      category,
		CreatedAt:     time.Now().Format(time.RFC3339),
		SourceContext: sourceContext,
		Keywords:      keywords,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.loadLocked(email)
	if !allowDuplicate {
		for _, existing := range facts {
			if strings.EqualFold(strings.TrimSpace(existing.Content), strings.TrimSpace(content)) &&
				strings.EqualFold(existing.Category, category) {
				return existing, nil
			}
		}
	}

	facts = append(facts, fact)
	if err := s.saveLocked(email, facts); err != nil {
		return Fact{}, err
	}
	return fact, nil
}

// All returns every fact for a user.
func (s *Store) All(email string) []Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(email)
}

// Search returns facts whose content, keywords or category contain query
// (case-insensitive).
func (s *Store) Search(email, query string) []Fact {
	query = strings.ToLower(query)

	var matches []Fact
	for _, fact := range s.All(email) {
		if strings.Contains(strings.ToLower(fact.Content), query) {
			matches = append(matches, fact)
			continue
		}
		matched := false
		for _, kw := range fact.Keywords {
			if strings.Contains(strings.ToLower(kw), query) {
				matches = append(matches, fact)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if strings.Contains(strings.ToLower(fact.Category), query) {
			matches = append(matches, fact)
		}
	}
	return matches
}

// ByCategory returns every fact in a category (case-insensitive).
func (s *Store) ByCategory(email, category string) []Fact {
	var matches []Fact
	for _, fact := range s.All(email) {
		if strings.EqualFold(fact.Category, category) {
			matches = append(matches, fact)
		}
	}
	return matches
}

// Delete removes a fact by ID, reporting whether it existed.
func (s *Store) Delete(email, factID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.loadLocked(email)
	kept := facts[:0]
	for _, f := range facts {
		if f.ID != factID {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(facts) {
		return false, nil
	}
	if err := s.saveLocked(email, kept); err != nil {
		return false, err
	}
	return true, nil
}

// Update replaces a fact's content, reporting whether the fact existed.
func (s *Store) Update(email, factID, content string) (bool, error) {
	if strings.TrimSpace(content) == "" {
		return false, fmt.Errorf("fact content cannot be empty or whitespace-only")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.loadLocked(email)
	for i := range facts {
		if facts[i].ID == factID {
			facts[i].Content = content
			if err := s.saveLocked(email, facts); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
