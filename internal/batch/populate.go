package batch

import (
	"context"
	"strings"

	"grantcloser/internal/logging"
	"grantcloser/internal/persons"
	"grantcloser/internal/queue"
	"grantcloser/internal/services"
)

// ItemData is the JSON payload stored on each work item.
type ItemData struct {
	CPR string `json:"cpr"`
}

// PopulateResult counts what a populate run did.
type PopulateResult struct {
	Fetched  int
	Enqueued int
	Skipped  int
}

// Populate enqueues every citizen the source returns that has no pending
// item yet. When the source keeps failing, the failure is logged and
// Populate returns nil so the next scheduled run can try again.
func (r *Runner) Populate(ctx context.Context) (PopulateResult, error) {
	var result PopulateResult
	if r.source == nil {
		return result, errNoSource
	}
	ctx = services.WithStage(ctx, "populate")
	logger := logging.WithContext(ctx, r.logger)
	ctx, span := r.tracer.Start(ctx, "populate", nil)

	people, err := r.fetchCitizens(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.End(ctxErr)
			return result, ctxErr
		}
		logging.ErrorWithContext(logger, "citizen list unavailable; nothing enqueued", "populate_aborted",
			logging.Int("attempts", r.fetchAttempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the Nexus database connection and rerun with --queue"),
		)
		span.End(err)
		return result, nil
	}
	result.Fetched = len(people)

	for _, person := range people {
		cpr := strings.TrimSpace(person.CPR)
		if cpr == "" {
			continue
		}
		existing, err := r.store.FindByReference(ctx, cpr, queue.StatusNew)
		if err != nil {
			span.End(err)
			return result, wrapStore("find", err)
		}
		if existing != nil {
			result.Skipped++
			continue
		}
		if _, err := r.store.Add(ctx, cpr, ItemData{CPR: cpr}); err != nil {
			span.End(err)
			return result, wrapStore("add", err)
		}
		result.Enqueued++
	}

	logger.Info("queue populated",
		logging.Int("fetched", result.Fetched),
		logging.Int("enqueued", result.Enqueued),
		logging.Int("skipped", result.Skipped),
		logging.String(logging.FieldEventType, "queue_populated"),
	)
	span.End(nil)
	return result, nil
}

func (r *Runner) fetchCitizens(ctx context.Context) ([]persons.Person, error) {
	logger := logging.WithContext(ctx, r.logger)
	var lastErr error
	for attempt := 1; attempt <= r.fetchAttempts; attempt++ {
		people, err := r.source.PlannedCitizens(ctx)
		if err == nil {
			return people, nil
		}
		lastErr = err
		logging.WarnWithContext(logger, "citizen list fetch failed", "fetch_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", r.fetchAttempts),
			logging.Error(err),
		)
		if attempt == r.fetchAttempts {
			break
		}
		if err := r.sleep(ctx, r.fetchDelay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
