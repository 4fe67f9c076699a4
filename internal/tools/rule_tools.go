package tools

import (
	"context"
	"strings"

	"iris/internal/rules"
	"iris/internal/shared/utils/id"
)

// RuleTools exposes automation rules to the assistant.
type RuleTools struct {
	store  *rules.Store
	engine *rules.Engine
}

// NewRuleTools wires the rule tool set. engine may be nil when no cron loop
// is running (rules are then stored but dormant).
func NewRuleTools(store *rules.Store, engine *rules.Engine) *RuleTools {
	return &RuleTools{store: store, engine: engine}
}

// CreateRule stores a new automation rule. Time rules need a cron schedule;
// event rules need a trigger description.
func (t *RuleTools) CreateRule(ctx context.Context, ruleType, scheduleOrTrigger, action, description string, params map[string]string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}

	var (
		rule rules.Rule
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(ruleType)) {
	case rules.TypeTime:
		rule, err = rules.NewTimeRule(userEmail, scheduleOrTrigger, action, description, params)
	case rules.TypeEvent:
		rule, err = rules.NewEventRule(userEmail, scheduleOrTrigger, action, description, params)
	default:
		return Errorf("rule type must be %q or %q", rules.TypeTime, rules.TypeEvent)
	}
	if err != nil {
		return Errorf("cannot create rule: %v", err)
	}

	if err := t.store.Add(rule); err != nil {
		return Errorf("failed to store rule: %v", err)
	}
	if t.engine != nil {
		t.engine.Refresh()
	}
	return Success("Rule created", map[string]any{
		"rule_id": rule.ID,
		"type":    rule.Type,
		"action":  rule.Action,
	})
}

// GetRules returns the user's rules.
func (t *RuleTools) GetRules(ctx context.Context) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	userRules := t.store.ForUser(userEmail)
	out := make([]map[string]any, 0, len(userRules))
	for _, r := range userRules {
		m := map[string]any{
			"rule_id": r.ID,
			"type":    r.Type,
			"action":  r.Action,
			"enabled": r.Enabled,
		}
		if r.Schedule != "" {
			m["schedule"] = r.Schedule
		}
		if r.Trigger != "" {
			m["trigger"] = r.Trigger
		}
		out = append(out, m)
	}
	return Success("Your rules", map[string]any{"rules": out, "count": len(out)})
}

// DeleteRule removes a rule by ID.
func (t *RuleTools) DeleteRule(ctx context.Context, ruleID string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	deleted, err := t.store.Delete(userEmail, ruleID)
	if err != nil {
		return Errorf("failed to delete rule: %v", err)
	}
	if !deleted {
		return Errorf("no rule with ID %s", ruleID)
	}
	if t.engine != nil {
		t.engine.Refresh()
	}
	return Success("Rule deleted", map[string]any{"rule_id": ruleID})
}
