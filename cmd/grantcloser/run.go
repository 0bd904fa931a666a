package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"grantcloser/internal/batch"
	"grantcloser/internal/closure"
	"grantcloser/internal/config"
	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/notifications"
	"grantcloser/internal/persons"
	"grantcloser/internal/queue"
	"grantcloser/internal/rules"
	"grantcloser/internal/runlock"
	"grantcloser/internal/telemetry"
	"grantcloser/internal/tracing"
)

// robotEnv holds what both runs share: config, rules, logger, queue and lock.
type robotEnv struct {
	cfg      *config.Config
	catalog  *rules.Catalog
	logger   *slog.Logger
	store    *queue.Store
	tracer   *tracing.Provider
	lock     *runlock.Lock
	notifier notifications.Service
}

func openRobotEnv(ctx *commandContext) (*robotEnv, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	// The rules are loaded before anything else so a missing workbook fails
	// the run without touching the queue.
	catalog, err := rules.LoadWorkbook(cfg.Paths.RulesFile)
	if err != nil {
		return nil, err
	}
	logger, err := ctx.logger()
	if err != nil {
		return nil, err
	}
	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("open queue: %w", err)
	}
	tracer, err := tracing.NewFromConfig(cfg, version)
	if err != nil {
		_ = store.Close()
		_ = lock.Release()
		return nil, err
	}
	logger.Debug("rules loaded",
		logging.String("path", cfg.Paths.RulesFile),
		logging.Int("names", len(catalog.Names())),
		logging.Int("paragraphs", len(catalog.Paragraphs())),
	)
	return &robotEnv{
		cfg:      cfg,
		catalog:  catalog,
		logger:   logger,
		store:    store,
		tracer:   tracer,
		lock:     lock,
		notifier: notifications.NewService(cfg),
	}, nil
}

// notify reports a notification failure without failing the run.
func (e *robotEnv) notify(err error) {
	if err != nil {
		logging.WarnWithContext(e.logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (e *robotEnv) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.tracer.Shutdown(shutdownCtx); err != nil {
		e.logger.Warn("trace shutdown failed", logging.Error(err))
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("queue close failed", logging.Error(err))
	}
	if err := e.lock.Release(); err != nil {
		e.logger.Warn("lock release failed", logging.Error(err))
	}
}

func (e *robotEnv) runnerOptions() []batch.Option {
	return []batch.Option{
		batch.WithLogger(e.logger),
		batch.WithTracer(e.tracer),
		batch.WithFetchRetry(e.cfg.Workflow.FetchAttempts, time.Duration(e.cfg.Workflow.FetchRetryDelaySeconds)*time.Second),
	}
}

func runPopulate(cmd *cobra.Command, ctx *commandContext) error {
	env, err := openRobotEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	source, err := persons.Open(cmd.Context(), env.cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	runner := batch.New(env.store, append(env.runnerOptions(), batch.WithSource(source))...)
	result, err := runner.Populate(cmd.Context())
	if err != nil {
		env.notify(env.notifier.NotifyError(context.WithoutCancel(cmd.Context()), err, "populate"))
		return err
	}
	env.notify(env.notifier.NotifyPopulateCompleted(cmd.Context(), result.Enqueued, result.Fetched))
	fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %d of %d citizens (%d already queued)\n", result.Enqueued, result.Fetched, result.Skipped)
	return nil
}

func runProcess(cmd *cobra.Command, ctx *commandContext) error {
	env, err := openRobotEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	client, err := nexus.NewFromConfig(cmd.Context(), env.cfg, env.logger)
	if err != nil {
		return err
	}
	tracking, err := telemetry.NewFromConfig(cmd.Context(), env.cfg, env.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracking.Close(context.WithoutCancel(cmd.Context())); err != nil {
			env.logger.Warn("telemetry flush failed", logging.Error(err))
		}
	}()

	processName := env.cfg.Workflow.ProcessName
	pipeline := batch.Pipeline{
		Patients:     client,
		Filter:       closure.NewFilter(client, env.catalog, time.Now, env.logger),
		Orchestrator: closure.NewOrchestrator(client, tracking.Tracker, processName, env.logger),
		Scheduler:    closure.NewScheduler(client, tracking.Tracker, processName, env.logger),
	}
	runner := batch.New(env.store, append(env.runnerOptions(), batch.WithPipeline(pipeline))...)

	summary, err := runner.Process(cmd.Context())
	printSummary(cmd, summary)
	notifyCtx := context.WithoutCancel(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("process run %s stopped: %w", summary.RunID, err)
		env.notify(env.notifier.NotifyError(notifyCtx, err, "process"))
		return err
	}
	if err == nil {
		env.notify(env.notifier.NotifyRunCompleted(notifyCtx, notifications.RunSummary{
			Processed: summary.Processed,
			Succeeded: summary.Succeeded,
			Noop:      summary.Noop,
			Failed:    summary.Failed,
			Duration:  summary.Duration,
		}))
	}
	return err
}

func printSummary(cmd *cobra.Command, summary batch.Summary) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	kind := statusOK
	if summary.Failed > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Processed", kind,
		fmt.Sprintf("%d items: %d succeeded, %d without eligible grants, %d failed",
			summary.Processed, summary.Succeeded, summary.Noop, summary.Failed),
		colorize))
}
