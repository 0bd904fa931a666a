package batch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"grantcloser/internal/closure"
	"grantcloser/internal/logging"
	"grantcloser/internal/queue"
	"grantcloser/internal/services"
)

// OutcomeKind classifies how one work item ended.
type OutcomeKind int

const (
	// OutcomeSuccess means at least one transition was applied or one
	// supplier order was scheduled.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeNoop means nothing changed in Nexus for the citizen.
	OutcomeNoop
	// OutcomeFailed means the item was marked failed.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoop:
		return "noop"
	default:
		return "failed"
	}
}

// Outcome is the result of processing one work item.
type Outcome struct {
	Kind      OutcomeKind
	Reason    string
	Grants    int
	Removed   int
	Halted    int
	Scheduled int
}

// Summary totals one process run.
type Summary struct {
	RunID     string
	Reset     int64
	Processed int
	Succeeded int
	Noop      int
	Failed    int
	Duration  time.Duration
}

func (s *Summary) add(outcome Outcome) {
	s.Processed++
	switch outcome.Kind {
	case OutcomeSuccess:
		s.Succeeded++
	case OutcomeNoop:
		s.Noop++
	default:
		s.Failed++
	}
}

// Process claims new items until the queue is empty. Items left in progress
// by an interrupted run are reset first. A business failure marks the item
// failed and the run continues; any other failure marks the item failed and
// stops the run with that error.
func (r *Runner) Process(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	if !r.pipeline.complete() {
		return summary, errNoPipeline
	}
	start := time.Now()
	ctx = services.WithStage(services.WithRequestID(ctx, summary.RunID), "process")
	logger := logging.WithContext(ctx, r.logger)
	ctx, span := r.tracer.Start(ctx, "process", map[string]string{"run_id": summary.RunID})

	finish := func(err error) (Summary, error) {
		summary.Duration = time.Since(start)
		span.SetAttribute("processed", strconv.Itoa(summary.Processed))
		span.End(err)
		logger.Info("process run finished",
			logging.Int("processed", summary.Processed),
			logging.Int("succeeded", summary.Succeeded),
			logging.Int("noop", summary.Noop),
			logging.Int("failed", summary.Failed),
			logging.Duration("duration", summary.Duration),
			logging.String(logging.FieldEventType, "run_finished"),
		)
		return summary, err
	}

	reset, err := r.store.ResetStuck(ctx)
	if err != nil {
		return finish(wrapStore("reset", err))
	}
	summary.Reset = reset
	if reset > 0 {
		logger.Info("reset interrupted items", logging.Int64("count", reset))
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		item, err := r.store.Next(ctx)
		if err != nil {
			return finish(wrapStore("claim", err))
		}
		if item == nil {
			return finish(nil)
		}
		outcome, err := r.ProcessItem(ctx, item)
		summary.add(outcome)
		if err != nil {
			return finish(err)
		}
	}
}

// ProcessItem runs one claimed item through the closure pipeline and records
// the result on the queue.
func (r *Runner) ProcessItem(ctx context.Context, item *queue.Item) (Outcome, error) {
	if item == nil {
		return Outcome{Kind: OutcomeFailed, Reason: "item is nil"}, fmt.Errorf("process item: item is nil")
	}
	if !r.pipeline.complete() {
		return Outcome{Kind: OutcomeFailed, Reason: errNoPipeline.Error()}, errNoPipeline
	}
	ctx = services.WithItemID(ctx, item.ID)
	cpr := itemCPR(item)
	logger := logging.WithContext(ctx, r.logger).With(logging.Args(logging.CPR(cpr))...)
	ctx, span := r.tracer.Start(ctx, "item", map[string]string{
		"item_id": strconv.FormatInt(item.ID, 10),
		"cpr":     logging.MaskCPR(cpr),
	})

	outcome, err := r.closeCitizen(ctx, cpr)
	if err != nil {
		outcome = Outcome{Kind: OutcomeFailed, Reason: services.Message(err)}
		if failErr := r.store.Fail(ctx, item.ID, outcome.Reason); failErr != nil {
			span.End(failErr)
			return outcome, wrapStore("fail", failErr)
		}
		span.SetAttribute("outcome", outcome.Kind.String())
		if services.IsBusiness(err) {
			logging.WarnWithContext(logger, "item failed", "item_failed",
				logging.String("reason", outcome.Reason),
				logging.String(logging.FieldErrorHint, "fix the citizen's data in Nexus and requeue"),
				logging.String(logging.FieldImpact, "citizen skipped"),
			)
			span.End(nil)
			return outcome, nil
		}
		logging.ErrorWithContext(logger, "item failed with unexpected error; stopping run", "item_error",
			logging.Error(err),
		)
		span.End(err)
		return outcome, err
	}

	message := completionMessage(outcome)
	if err := r.store.Complete(ctx, item.ID, message); err != nil {
		span.End(err)
		return outcome, wrapStore("complete", err)
	}
	span.SetAttribute("outcome", outcome.Kind.String())
	span.End(nil)
	logger.Info("item completed",
		logging.String("outcome", outcome.Kind.String()),
		logging.Int("grants", outcome.Grants),
		logging.Int("scheduled", outcome.Scheduled),
		logging.String(logging.FieldEventType, "item_completed"),
	)
	return outcome, nil
}

func (r *Runner) closeCitizen(ctx context.Context, cpr string) (Outcome, error) {
	if cpr == "" {
		return Outcome{}, services.Business("work item has no cpr")
	}
	patient, err := r.pipeline.Patients.FindPatient(ctx, cpr)
	if err != nil {
		return Outcome{}, fmt.Errorf("find citizen: %w", err)
	}
	if patient == nil {
		return Outcome{}, services.AsBusiness(fmt.Sprintf("citizen %s not found in Nexus", logging.MaskCPR(cpr)), services.ErrNotFound)
	}

	grants, err := r.pipeline.Filter.FindEligible(ctx, patient)
	if err != nil {
		return Outcome{}, err
	}
	outcome := Outcome{Kind: OutcomeNoop, Grants: len(grants)}
	for _, grant := range grants {
		final, advance, err := r.pipeline.Orchestrator.Advance(ctx, grant)
		if err != nil {
			return outcome, err
		}
		if len(advance.Applied) > 0 {
			outcome.Kind = OutcomeSuccess
		}
		switch advance.Kind {
		case closure.AdvanceRemoved:
			outcome.Removed++
			continue
		case closure.AdvanceHalted:
			outcome.Halted++
		}
		scheduled, err := r.pipeline.Scheduler.Schedule(ctx, final)
		if err != nil {
			return outcome, err
		}
		if scheduled {
			outcome.Kind = OutcomeSuccess
			outcome.Scheduled++
		}
	}
	return outcome, nil
}

func itemCPR(item *queue.Item) string {
	var data ItemData
	if err := item.DecodeData(&data); err == nil && strings.TrimSpace(data.CPR) != "" {
		return strings.TrimSpace(data.CPR)
	}
	return strings.TrimSpace(item.Reference)
}

func completionMessage(outcome Outcome) string {
	if outcome.Kind == OutcomeNoop {
		if outcome.Grants == 0 {
			return "no eligible grants"
		}
		return fmt.Sprintf("%d eligible grants, nothing to transition or schedule", outcome.Grants)
	}
	return fmt.Sprintf("%d grants handled (%d removed, %d halted), %d orders scheduled",
		outcome.Grants, outcome.Removed, outcome.Halted, outcome.Scheduled)
}
