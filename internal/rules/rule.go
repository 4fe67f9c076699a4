// Package rules stores per-user automation rules and runs the time-based ones
// on cron schedules.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"iris/internal/shared/utils/id"
)

// Rule types.
const (
	TypeTime  = "time"
	TypeEvent = "event"
)

// Actions a rule may dispatch.
var validActions = map[string]struct{}{
	"weekly_schedule_summary": {},
	"send_reminder":           {},
	"generate_diary":          {},
}

// scheduleParser accepts the standard 5-field cron syntax.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Rule is one automation rule. Time rules carry a cron Schedule; event rules
// carry a free-text Trigger description matched elsewhere.
type Rule struct {
	ID          string            `json:"id"`
	UserEmail   string            `json:"user_email"`
	Type        string            `json:"type"`
	Action      string            `json:"action"`
	Enabled     bool              `json:"enabled"`
	Schedule    string            `json:"schedule,omitempty"`
	Description string            `json:"description"`
	Trigger     string            `json:"trigger,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	CreatedAt   string            `json:"created_at"`
	LastFired   string            `json:"last_fired,omitempty"`
}

// ValidAction reports whether action is one the engine knows how to run.
func ValidAction(action string) bool {
	_, ok := validActions[action]
	return ok
}

// NewTimeRule creates an enabled time rule after validating the cron
// expression and action.
func NewTimeRule(userEmail, schedule, action, description string, params map[string]string) (Rule, error) {
	if !ValidAction(action) {
		return Rule{}, fmt.Errorf("unknown rule action %q", action)
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return Rule{}, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return Rule{
		ID:          id.NewRuleID(),
		UserEmail:   userEmail,
		Type:        TypeTime,
		Action:      action,
		Enabled:     true,
		Schedule:    schedule,
		Description: description,
		Params:      params,
		CreatedAt:   time.Now().Format(time.RFC3339),
	}, nil
}

// NewEventRule creates an enabled event rule. Event rules are matched by the
// conversational layer, not the cron engine, so only the trigger text and
// action are validated here.
func NewEventRule(userEmail, trigger, action, description string, params map[string]string) (Rule, error) {
	if !ValidAction(action) {
		return Rule{}, fmt.Errorf("unknown rule action %q", action)
	}
	if strings.TrimSpace(trigger) == "" {
		return Rule{}, fmt.Errorf("event rule needs a trigger description")
	}
	return Rule{
		ID:          id.NewRuleID(),
		UserEmail:   userEmail,
		Type:        TypeEvent,
		Action:      action,
		Enabled:     true,
		Description: description,
		Trigger:     trigger,
		Params:      params,
		CreatedAt:   time.Now().Format(time.RFC3339),
	}, nil
}
