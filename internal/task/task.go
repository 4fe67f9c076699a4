// Package task hands work items across the process boundary to the
// orchestrator's input poller via atomically written JSON files.
package task

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"iris/internal/shared/logging"
	"iris/internal/shared/utils/id"
	"iris/internal/storage"
)

// AgentTask is one unit of delegated work, e.g. an email to compose and send.
type AgentTask struct {
	ID               string            `json:"id"`
	Action           string            `json:"action"`
	Params           map[string]string `json:"params"`
	CreatedBy        string            `json:"created_by"`
	OriginalSender   string            `json:"original_sender"`
	OriginalThreadID string            `json:"original_thread_id,omitempty"`
	CreatedAt        string            `json:"created_at"`
}

// New creates a task with a fresh ID and timestamp.
func New(action string, params map[string]string, createdBy, originalSender, originalThreadID string) AgentTask {
	if params == nil {
		params = map[string]string{}
	}
	return AgentTask{
		ID:               id.NewTaskID(),
		Action:           action,
		Params:           params,
		CreatedBy:        createdBy,
		OriginalSender:   originalSender,
		OriginalThreadID: originalThreadID,
		CreatedAt:        time.Now().Format(time.RFC3339),
	}
}

// Validate checks the task carries the fields the poller requires.
func (t AgentTask) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task has no ID")
	}
	if strings.TrimSpace(t.Action) == "" {
		return fmt.Errorf("task has no action")
	}
	if strings.TrimSpace(t.OriginalSender) == "" {
		return fmt.Errorf("task has no original sender")
	}
	return nil
}

// Outbox writes tasks into the poller's input directory. The atomic write
// matters here more than anywhere: the poller may scan the directory at any
// moment and must never pick up a half-written task file.
type Outbox struct {
	dir    string
	logger logging.Logger
}

// NewOutbox creates an outbox rooted at dir.
func NewOutbox(dir string, logger logging.Logger) *Outbox {
	return &Outbox{dir: dir, logger: logging.OrNop(logger)}
}

// Write persists the task as task_<id>.json in the outbox directory.
func (o *Outbox) Write(t AgentTask) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("invalid task: %w", err)
	}
	path := filepath.Join(o.dir, fmt.Sprintf("task_%s.json", t.ID))
	if err := storage.WriteJSON(path, t); err != nil {
		return "", fmt.Errorf("write task %s: %w", t.ID, err)
	}
	o.logger.Info("Task %s (%s) queued for %s", t.ID, t.Action, t.OriginalSender)
	return path, nil
}
