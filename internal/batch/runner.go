package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"grantcloser/internal/closure"
	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/persons"
	"grantcloser/internal/queue"
	"grantcloser/internal/tracing"
)

// PatientFinder looks up a citizen by CPR number.
type PatientFinder interface {
	FindPatient(ctx context.Context, cpr string) (*nexus.Patient, error)
}

// Pipeline is the per-citizen closure logic.
type Pipeline struct {
	Patients     PatientFinder
	Filter       *closure.Filter
	Orchestrator *closure.Orchestrator
	Scheduler    *closure.Scheduler
}

// Runner owns the queue and the collaborators of both runs. Source is only
// needed by Populate and Pipeline only by Process.
type Runner struct {
	store    *queue.Store
	source   persons.Source
	pipeline Pipeline
	tracer   *tracing.Provider
	logger   *slog.Logger

	fetchAttempts int
	fetchDelay    time.Duration
	sleep         func(context.Context, time.Duration) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSource sets the citizen source used by Populate.
func WithSource(source persons.Source) Option {
	return func(r *Runner) { r.source = source }
}

// WithPipeline sets the closure pipeline used by Process.
func WithPipeline(pipeline Pipeline) Option {
	return func(r *Runner) { r.pipeline = pipeline }
}

// WithTracer records a span per run and per item.
func WithTracer(tracer *tracing.Provider) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFetchRetry sets how often and how far apart the citizen list fetch is
// attempted.
func WithFetchRetry(attempts int, delay time.Duration) Option {
	return func(r *Runner) {
		if attempts > 0 {
			r.fetchAttempts = attempts
		}
		if delay >= 0 {
			r.fetchDelay = delay
		}
	}
}

// WithSleep replaces the delay between fetch attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// New builds a runner over store.
func New(store *queue.Store, opts ...Option) *Runner {
	r := &Runner{
		store:         store,
		tracer:        tracing.Disabled(),
		logger:        logging.NewNop(),
		fetchAttempts: DefaultFetchAttempts,
		fetchDelay:    DefaultFetchDelay,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "batch")
	return r
}

// Defaults for the citizen list fetch.
const (
	DefaultFetchAttempts = 3
	DefaultFetchDelay    = 5 * time.Second
)

var (
	errNoSource   = errors.New("batch: populate needs a citizen source")
	errNoPipeline = errors.New("batch: process needs a complete closure pipeline")
)

func (p Pipeline) complete() bool {
	return p.Patients != nil && p.Filter != nil && p.Orchestrator != nil && p.Scheduler != nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func wrapStore(op string, err error) error {
	return fmt.Errorf("queue %s: %w", op, err)
}
