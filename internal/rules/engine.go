package rules

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"iris/internal/shared/logging"
)

// ActionRunner executes a rule's action when its schedule fires.
type ActionRunner interface {
	Run(ctx context.Context, rule Rule) error
}

// Engine drives time rules with robfig/cron: one cron entry per enabled time
// rule. Event rules are stored but never registered; they belong to the
// conversational layer.
type Engine struct {
	store  *Store
	runner ActionRunner
	cron   *cron.Cron
	logger logging.Logger

	mu       sync.Mutex
	entryIDs map[string]cron.EntryID // rule ID → cron entry
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewEngine creates a rule engine. A slow action overlapping its next tick is
// skipped rather than stacked.
func NewEngine(store *Store, runner ActionRunner, logger logging.Logger) *Engine {
	logger = logging.OrNop(logger)
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &Engine{
		store:    store,
		runner:   runner,
		cron:     c,
		logger:   logger,
		entryIDs: make(map[string]cron.EntryID),
		stopped:  make(chan struct{}),
	}
}

// Start registers every enabled time rule and starts the cron loop. The
// engine stops itself when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.syncLocked()
	e.mu.Unlock()

	e.cron.Start()
	e.logger.Info("Rule engine started with %d scheduled rule(s)", e.EntryCount())

	go func() {
		<-ctx.Done()
		e.Stop()
	}()
}

// Refresh re-syncs cron entries with the store after rules were added or
// removed.
func (e *Engine) Refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncLocked()
}

// syncLocked registers missing enabled time rules and prunes entries whose
// rule is gone or disabled. Must be called with e.mu held.
func (e *Engine) syncLocked() {
	active := make(map[string]struct{})
	for _, rule := range e.store.All() {
		if rule.Type != TypeTime || !rule.Enabled {
			continue
		}
		active[rule.ID] = struct{}{}
		if _, exists := e.entryIDs[rule.ID]; exists {
			continue
		}

		r := rule
		entryID, err := e.cron.AddFunc(r.Schedule, func() { e.execute(r) })
		if err != nil {
			e.logger.Warn("Skipping rule %s with invalid schedule %q: %v", r.ID, r.Schedule, err)
			continue
		}
		e.entryIDs[r.ID] = entryID
		e.logger.Info("Registered rule %s (%s) on schedule %q", r.ID, r.Action, r.Schedule)
	}

	for ruleID, entryID := range e.entryIDs {
		if _, ok := active[ruleID]; !ok {
			e.cron.Remove(entryID)
			delete(e.entryIDs, ruleID)
			e.logger.Info("Unregistered rule %s", ruleID)
		}
	}
}

// execute runs one rule action and stamps its last-fired time. Failures are
// logged; the schedule keeps ticking.
func (e *Engine) execute(rule Rule) {
	e.logger.Info("Rule %s firing action %s for %s", rule.ID, rule.Action, rule.UserEmail)
	if err := e.runner.Run(context.Background(), rule); err != nil {
		e.logger.Error("Rule %s action %s failed: %v", rule.ID, rule.Action, err)
		return
	}
	if err := e.store.UpdateLastFired(rule.UserEmail, rule.ID, time.Now()); err != nil {
		e.logger.Warn("Rule %s fired but last-fired stamp failed: %v", rule.ID, err)
	}
}

// Stop drains the cron loop. Safe to call multiple times.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		stopCtx := e.cron.Stop()
		<-stopCtx.Done()
		close(e.stopped)
		e.logger.Info("Rule engine stopped")
	})
}

// Done is closed once the engine has fully stopped.
func (e *Engine) Done() <-chan struct{} {
	return e.stopped
}

// EntryCount reports how many rules currently hold a cron entry.
func (e *Engine) EntryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entryIDs)
}
