package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixedIdentifiers(t *testing.T) {
	t.Parallel()

	assert.True(t, strings.HasPrefix(NewReminderID(), "rem-"))
	assert.True(t, strings.HasPrefix(NewFactID(), "fact-"))
	assert.True(t, strings.HasPrefix(NewRuleID(), "rule-"))
	assert.True(t, strings.HasPrefix(NewTaskID(), "task-"))

	assert.NotEqual(t, NewReminderID(), NewReminderID())
}

func TestStrategies(t *testing.T) {
	gen := &Generator{strategy: StrategyKSUID}
	ksuidID := gen.newIdentifier("rem")
	assert.Len(t, strings.TrimPrefix(ksuidID, "rem-"), 27, "KSUID body is 27 chars")

	gen.setStrategy(StrategyUUIDv7)
	uuidID := gen.newIdentifier("rem")
	assert.Len(t, strings.TrimPrefix(uuidID, "rem-"), 36, "UUID body is canonical form")
}

func TestNewUUIDIsCompactHex(t *testing.T) {
	t.Parallel()

	raw := NewUUID()
	assert.Len(t, raw, 32)
	assert.NotContains(t, raw, "-")
}
