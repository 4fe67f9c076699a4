package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"iris/internal/config"
	"iris/internal/diary"
	"iris/internal/memory"
	"iris/internal/metrics"
	"iris/internal/reminder"
	"iris/internal/rules"
	jsonx "iris/internal/shared/json"
	"iris/internal/shared/logging"
	id "iris/internal/shared/utils/id"
	"iris/internal/task"
	"iris/internal/tools"
	"iris/internal/userdata"
)

var toolUser string

var toolCmd = &cobra.Command{
	Use:   "tool <name> [key=value ...]",
	Short: "Invoke one assistant tool against the local stores",
	Long: `Invoke a tool directly, the way the conversational layer would.
The stores are file-backed, so this works against the same data a running
serve process uses. Examples:

  iris tool create_reminder --user me@example.com message="stand up" datetime=2026-03-01T15:00:00
  iris tool list_reminders --user me@example.com
  iris tool remember_fact --user me@example.com content="Has a cat named Oliver" category=pets
  iris tool add_todo --user me@example.com text="file taxes" due_date=2026-04-15 reminder_days_before=3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTool,
}

func init() {
	toolCmd.Flags().StringVar(&toolUser, "user", "", "email of the requesting user (required)")
	_ = toolCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(toolCmd)
}

func runTool(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return err
	}
	loc := cfg.Location()
	m := metrics.Default()
	logger := logging.NewComponentLogger("tool")

	diaryStore := diary.NewStore(cfg.DiaryPath(), cfg.ActivityPath(), loc, logger, m)
	reminderStore := reminder.NewStore(cfg.RemindersPath(), logger, m)
	outbox := task.NewOutbox(cfg.TaskInboxDir(), logger)
	scheduler := reminder.NewScheduler(reminder.Config{
		Location:          loc,
		AllowedRecipients: cfg.AllowedSenders,
	}, reminderStore, newOutboxNotifier(outbox), diaryStore, logger, m)

	registry := tools.NewRegistry(tools.Deps{
		Scheduler:      scheduler,
		ReminderStore:  reminderStore,
		Facts:          memory.NewStore(cfg.MemoryDir(), logger, m),
		Users:          userdata.NewStore(cfg.UserDataPath(), loc, logger, m),
		RuleStore:      rules.NewStore(cfg.RulesPath(), logger, m),
		DiaryStore:     diaryStore,
		Outbox:         outbox,
		Location:       loc,
		AllowedSenders: cfg.AllowedSenders,
		Logger:         logger,
	})

	name := args[0]
	params := map[string]string{}
	for _, arg := range args[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("argument %q is not key=value", arg)
		}
		params[key] = value
	}

	ctx := id.WithRequest(cmd.Context(), id.RequestContext{
		UserEmail: toolUser,
		ReplyTo:   toolUser,
	})

	var result tools.Result
	switch name {
	case "create_reminder":
		result = registry.Reminders.CreateReminder(ctx, params["message"], params["datetime"])
	case "cancel_reminder":
		result = registry.Reminders.CancelReminder(ctx, params["reminder_id"])
	case "list_reminders":
		result = registry.Reminders.ListReminders(ctx)
	case "remember_fact":
		result = registry.Memory.RememberFact(ctx, params["content"], params["category"], splitList(params["keywords"]))
	case "recall_facts":
		result = registry.Memory.RecallFacts(ctx, params["query"])
	case "facts_by_category":
		result = registry.Memory.ListFactsByCategory(ctx, params["category"])
	case "forget_fact":
		result = registry.Memory.ForgetFact(ctx, params["fact_id"])
	case "update_fact":
		result = registry.Memory.UpdateFactContent(ctx, params["fact_id"], params["content"])
	case "get_lists":
		result = registry.PersonalData.GetLists(ctx)
	case "get_list":
		result = registry.PersonalData.GetList(ctx, params["name"])
	case "add_to_list":
		result = registry.PersonalData.AddToList(ctx, params["name"], params["item"])
	case "remove_from_list":
		result = registry.PersonalData.RemoveFromList(ctx, params["name"], params["item"])
	case "add_todo":
		days, _ := strconv.Atoi(params["reminder_days_before"])
		result = registry.PersonalData.AddTodoItem(ctx, params["text"], params["due_date"], days)
	case "complete_todo":
		result = registry.PersonalData.CompleteTodoItem(ctx, params["todo"])
	case "delete_todo":
		result = registry.PersonalData.DeleteTodoItem(ctx, params["todo_id"])
	case "get_todos":
		result = registry.PersonalData.GetUserTodos(ctx, params["include_done"] == "true")
	case "create_rule":
		result = registry.Rules.CreateRule(ctx, params["type"], params["schedule"], params["action"], params["description"], nil)
	case "get_rules":
		result = registry.Rules.GetRules(ctx)
	case "delete_rule":
		result = registry.Rules.DeleteRule(ctx, params["rule_id"])
	case "query_diary":
		limit, _ := strconv.Atoi(params["limit"])
		result = registry.Diary.QueryDiary(ctx, limit)
	case "create_task":
		result = registry.Tasks.CreateAgentTask(ctx, params["action"], params)
	default:
		return fmt.Errorf("unknown tool %q", name)
	}

	out, err := jsonx.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if result.OK() {
		fmt.Println(green("✓"), result.Message())
	} else {
		fmt.Println(red("✗"), result.Message())
	}
	fmt.Println(string(out))
	// Pending timers belong to the serve process; this one-shot invocation
	// only persists the records.
	scheduler.CancelAll()
	if !result.OK() {
		return fmt.Errorf("tool %s failed", name)
	}
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
