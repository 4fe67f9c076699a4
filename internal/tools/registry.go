package tools

import (
	"time"

	"iris/internal/diary"
	"iris/internal/memory"
	"iris/internal/reminder"
	"iris/internal/rules"
	"iris/internal/shared/logging"
	"iris/internal/task"
	"iris/internal/userdata"
)

// Registry groups every tool set the conversational layer can call.
type Registry struct {
	Reminders    *ReminderTools
	Memory       *MemoryTools
	PersonalData *PersonalDataTools
	Rules        *RuleTools
	Diary        *DiaryTools
	Tasks        *TaskTools
}

// Deps carries the backing components a Registry wires together.
type Deps struct {
	Scheduler      *reminder.Scheduler
	ReminderStore  *reminder.Store
	Facts          *memory.Store
	Users          *userdata.Store
	RuleStore      *rules.Store
	RuleEngine     *rules.Engine
	DiaryStore     *diary.Store
	Outbox         *task.Outbox
	Location       *time.Location
	AllowedSenders []string
	Logger         logging.Logger
}

// NewRegistry builds the full tool surface from its dependencies.
func NewRegistry(d Deps) *Registry {
	return &Registry{
		Reminders:    NewReminderTools(d.Scheduler, d.ReminderStore, d.Location, d.Logger),
		Memory:       NewMemoryTools(d.Facts),
		PersonalData: NewPersonalDataTools(d.Users, d.Scheduler, d.Location, d.Logger),
		Rules:        NewRuleTools(d.RuleStore, d.RuleEngine),
		Diary:        NewDiaryTools(d.DiaryStore),
		Tasks:        NewTaskTools(d.Outbox, d.AllowedSenders, d.Logger),
	}
}
