package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"iris/internal/config"
	"iris/internal/diary"
	"iris/internal/metrics"
	"iris/internal/reminder"
	"iris/internal/rules"
	"iris/internal/session"
	"iris/internal/shared/logging"
	"iris/internal/task"
	"iris/internal/userdata"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant backend until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	var opts []config.Option
	if dir := viper.GetString("data_dir"); dir != "" {
		opts = append(opts, config.WithDataDir(dir))
	}
	if tz := viper.GetString("timezone"); tz != "" {
		opts = append(opts, config.WithTimezone(tz))
	}
	cfg, err := config.Load(viper.GetString("config"), opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, red("✗ "+err.Error()))
		return err
	}

	logger := logging.NewComponentLogger("serve")
	m := metrics.Default()
	loc := cfg.Location()

	diaryStore := diary.NewStore(cfg.DiaryPath(), cfg.ActivityPath(), loc, logging.NewComponentLogger("diary"), m)
	reminderStore := reminder.NewStore(cfg.RemindersPath(), logging.NewSchedulerLogger("store"), m)
	outbox := task.NewOutbox(cfg.TaskInboxDir(), logging.NewComponentLogger("outbox"))
	scheduler := reminder.NewScheduler(reminder.Config{
		Location:          loc,
		AllowedRecipients: cfg.AllowedSenders,
	}, reminderStore, newOutboxNotifier(outbox), diaryStore, logging.NewSchedulerLogger("scheduler"), m)

	users := userdata.NewStore(cfg.UserDataPath(), loc, logging.NewComponentLogger("userdata"), m)
	sessions := session.NewStore(cfg.SessionsPath(), logging.NewComponentLogger("session"), m)
	generator := diary.NewGenerator(diaryStore, users, nil, textNarrator{}, loc, logging.NewComponentLogger("diary"))
	ruleStore := rules.NewStore(cfg.RulesPath(), logging.NewComponentLogger("rules"), m)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start()
	fmt.Println(green("✓"), "reminder scheduler up,", bold(fmt.Sprint(scheduler.ActiveTimerCount())), "timer(s) armed")

	var engine *rules.Engine
	if cfg.RulesEnabled {
		runner := &actionRunner{
			scheduler: scheduler,
			users:     users,
			generator: generator,
			notifier:  newOutboxNotifier(outbox),
		}
		engine = rules.NewEngine(ruleStore, runner, logging.NewComponentLogger("rules"))
		engine.Start(ctx)
		fmt.Println(green("✓"), "rule engine up,", bold(fmt.Sprint(engine.EntryCount())), "rule(s) scheduled")
	} else {
		fmt.Println(gray("- rule engine disabled"))
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("Metrics server: %v", err)
			}
		}()
		fmt.Println(green("✓"), "metrics on", cfg.MetricsAddr)
	}

	if removed, err := sessions.CleanupOld(cfg.SessionRetentionDays); err != nil {
		logger.Warn("Session cleanup: %v", err)
	} else if removed > 0 {
		fmt.Println(gray(fmt.Sprintf("- pruned %d stale conversation(s)", removed)))
	}

	fmt.Println(bold("iris is running"), gray("(ctrl-c to stop)"))
	<-ctx.Done()

	fmt.Println(yellow("shutting down..."))
	stopped := scheduler.CancelAll()
	logger.Info("Shutdown: released %d reminder timer(s)", stopped)
	if engine != nil {
		engine.Stop()
		<-engine.Done()
	}
	// Give in-flight fire callbacks a moment to finish their cleanup.
	time.Sleep(100 * time.Millisecond)
	fmt.Println(green("✓ bye"))
	return nil
}
