package tools

import (
	"context"
	"strings"

	"iris/internal/shared/logging"
	"iris/internal/shared/utils/id"
	"iris/internal/task"
)

// taskActions maps each allowed task action to its required parameters.
var taskActions = map[string][]string{
	"send_email": {"to", "subject", "body"},
}

// TaskTools lets the assistant delegate work to the orchestrator via the
// task outbox.
type TaskTools struct {
	outbox         *task.Outbox
	allowedSenders map[string]struct{}
	logger         logging.Logger
}

// NewTaskTools wires the task tool set. allowedSenders is the whitelist both
// the requesting user and any email recipient must be on.
func NewTaskTools(outbox *task.Outbox, allowedSenders []string, logger logging.Logger) *TaskTools {
	allowed := make(map[string]struct{}, len(allowedSenders))
	for _, addr := range allowedSenders {
		allowed[strings.ToLower(strings.TrimSpace(addr))] = struct{}{}
	}
	return &TaskTools{outbox: outbox, allowedSenders: allowed, logger: logging.OrNop(logger)}
}

func (t *TaskTools) authorized(addr string) bool {
	_, ok := t.allowedSenders[strings.ToLower(strings.TrimSpace(addr))]
	return ok
}

// CreateAgentTask validates and queues a delegated task. Only whitelisted
// actions are accepted, every required parameter must be present and
// non-blank, and both the requesting user and the recipient must be
// authorized.
func (t *TaskTools) CreateAgentTask(ctx context.Context, action string, params map[string]string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	if !t.authorized(userEmail) {
		return Errorf("%s is not authorized to create tasks", userEmail)
	}

	required, ok := taskActions[action]
	if !ok {
		return Errorf("unknown task action %q", action)
	}
	for _, param := range required {
		if strings.TrimSpace(params[param]) == "" {
			return Errorf("task action %s requires parameter %q", action, param)
		}
	}
	if action == "send_email" && !t.authorized(params["to"]) {
		return Errorf("recipient %s is not on the allowed list", params["to"])
	}

	queued := task.New(action, params, "assistant", userEmail, id.ThreadIDFromContext(ctx))
	if _, err := t.outbox.Write(queued); err != nil {
		return Errorf("failed to queue task: %v", err)
	}
	return Success("Task queued", map[string]any{
		"task_id": queued.ID,
		"action":  action,
	})
}
