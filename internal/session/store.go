// Package session persists email conversation threads in one JSON file.
package session

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"iris/internal/metrics"
	"iris/internal/shared/logging"
	"iris/internal/storage"
)

// Message is one turn of a conversation.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Conversation is the stored state of one email thread.
type Conversation struct {
	ThreadID  string    `json:"thread_id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Messages  []Message `json:"messages"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// ThreadID derives a stable conversation key from an email's subject and
// sender. Reply prefixes are stripped so "Re: Lunch?" continues the "Lunch?"
// thread.
func ThreadID(subject, sender string) string {
	normalized := strings.ToLower(strings.TrimSpace(subject))
	for {
		stripped := false
		for _, prefix := range []string{"re:", "fwd:", "fw:"} {
			if strings.HasPrefix(normalized, prefix) {
				normalized = strings.TrimSpace(normalized[len(prefix):])
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}
	sum := sha256.Sum256([]byte(normalized + "|" + strings.ToLower(strings.TrimSpace(sender))))
	return fmt.Sprintf("session-%x", sum[:12])
}

// Store persists conversations keyed by thread ID under one lock.
type Store struct {
	path    string
	logger  logging.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewStore creates a session store backed by the JSON file at path.
func NewStore(path string, logger logging.Logger, m *metrics.Metrics) *Store {
	return &Store{path: path, logger: logging.OrNop(logger), metrics: m}
}

func (s *Store) loadLocked() map[string]*Conversation {
	var conversations map[string]*Conversation
	if !storage.LoadJSON(s.path, &conversations, s.logger) || conversations == nil {
		return map[string]*Conversation{}
	}
	return conversations
}

func (s *Store) saveLocked(conversations map[string]*Conversation) error {
	if err := storage.WriteJSON(s.path, conversations); err != nil {
		s.metrics.StoreWriteFailure("sessions")
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

// GetOrCreate returns the conversation for (subject, sender), creating it on
// first contact. Lookup and creation happen under one lock so two concurrent
// messages on a new thread cannot mint two conversations.
func (s *Store) GetOrCreate(subject, sender string) (Conversation, error) {
	threadID := ThreadID(subject, sender)

	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.loadLocked()
	if conv, ok := conversations[threadID]; ok {
		return *conv, nil
	}

	now := time.Now().Format(time.RFC3339)
	conv := &Conversation{
		ThreadID:  threadID,
		Sender:    sender,
		Subject:   subject,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	conversations[threadID] = conv
	if err := s.saveLocked(conversations); err != nil {
		return Conversation{}, err
	}
	return *conv, nil
}

// AddMessage appends a turn to an existing conversation and bumps its
// UpdatedAt.
func (s *Store) AddMessage(threadID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.loadLocked()
	conv, ok := conversations[threadID]
	if !ok {
		return fmt.Errorf("conversation %s not found", threadID)
	}
	now := time.Now().Format(time.RFC3339)
	conv.Messages = append(conv.Messages, Message{Role: role, Content: content, Timestamp: now})
	conv.UpdatedAt = now
	return s.saveLocked(conversations)
}

// Get returns a conversation by thread ID.
func (s *Store) Get(threadID string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.loadLocked()[threadID]
	if !ok {
		return Conversation{}, false
	}
	return *conv, true
}

// ListConversations returns up to limit of the sender's conversations, most
// recently updated first. limit <= 0 means all.
func (s *Store) ListConversations(sender string, limit int) []Conversation {
	s.mu.Lock()
	conversations := s.loadLocked()
	s.mu.Unlock()

	var matches []Conversation
	for _, conv := range conversations {
		if strings.EqualFold(conv.Sender, sender) {
			matches = append(matches, *conv)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].UpdatedAt > matches[j].UpdatedAt })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Delete removes a conversation, reporting whether it existed.
func (s *Store) Delete(threadID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.loadLocked()
	if _, ok := conversations[threadID]; !ok {
		return false, nil
	}
	delete(conversations, threadID)
	if err := s.saveLocked(conversations); err != nil {
		return false, err
	}
	return true, nil
}

// CleanupOld removes conversations not updated in the last `days` days and
// returns how many were dropped. Conversations with unreadable timestamps are
// treated as stale.
func (s *Store) CleanupOld(days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.loadLocked()
	removed := 0
	for threadID, conv := range conversations {
		updatedAt, err := time.Parse(time.RFC3339, conv.UpdatedAt)
		if err != nil || updatedAt.Before(cutoff) {
			delete(conversations, threadID)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.saveLocked(conversations); err != nil {
		return 0, err
	}
	s.logger.Info("Cleaned up %d stale conversation(s)", removed)
	return removed, nil
}
