package closure

import (
	"context"
	"fmt"
	"log/slog"

	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/services"
	"grantcloser/internal/telemetry"
)

// Transition names used by the orchestrator.
const (
	TransitionApprove = "Bevilg"
	TransitionOrder   = "Bestil"
	TransitionClose   = "Afslut"
	TransitionRemove  = "Fjern"
)

// closingSequence is applied in order; transitions not offered are skipped.
var closingSequence = []string{TransitionApprove, TransitionOrder, TransitionClose}

// removedGrantNames are activities that are removed instead of closed. They
// have no supplier order. Nexus uses both spellings of the outdoor activity.
var removedGrantNames = map[string]struct{}{
	"Aktivitet i Huset":      {},
	"Aktivitet ude af Huset": {},
	"Aktivitet Ude af Huset": {},
}

// AdvanceKind summarises what Advance did to a grant.
type AdvanceKind int

const (
	// AdvanceNone means no transition in the sequence was offered.
	AdvanceNone AdvanceKind = iota
	// AdvanceTransitioned means every offered transition was applied.
	AdvanceTransitioned
	// AdvanceHalted means the sequence stopped on a missing date.
	AdvanceHalted
	// AdvanceRemoved means the grant was removed; no supplier order follows.
	AdvanceRemoved
)

func (k AdvanceKind) String() string {
	switch k {
	case AdvanceTransitioned:
		return "transitioned"
	case AdvanceHalted:
		return "halted"
	case AdvanceRemoved:
		return "removed"
	default:
		return "none"
	}
}

// Advance reports the transitions applied to one grant.
type Advance struct {
	Kind    AdvanceKind
	Applied []string
}

// Orchestrator walks grants through the closing transitions.
type Orchestrator struct {
	client      GrantEditor
	tracker     telemetry.Tracker
	processName string
	logger      *slog.Logger
}

// NewOrchestrator builds an orchestrator. A nil tracker discards signals.
func NewOrchestrator(client GrantEditor, tracker telemetry.Tracker, processName string, logger *slog.Logger) *Orchestrator {
	if tracker == nil {
		tracker = telemetry.Nop{}
	}
	return &Orchestrator{
		client:      client,
		tracker:     tracker,
		processName: processName,
		logger:      logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// Advance closes out one grant and returns its latest state.
func (o *Orchestrator) Advance(ctx context.Context, grant *nexus.Grant) (*nexus.Grant, Advance, error) {
	if grant == nil {
		return nil, Advance{}, services.Wrap(services.ErrValidation, "orchestrator", "advance", "grant is nil", nil)
	}
	ctx = services.WithGrant(ctx, grant.Name)
	logger := logging.WithContext(ctx, o.logger)

	if isRemovedActivity(grant.Name) {
		if _, err := o.client.ApplyTransition(ctx, grant, TransitionRemove, map[string]any{}); err != nil {
			return nil, Advance{}, fmt.Errorf("remove grant %q: %w", grant.Name, err)
		}
		o.tracker.TrackTask(ctx, o.processName)
		logger.Info("grant removed",
			logging.String(logging.FieldTransition, TransitionRemove),
			logging.String(logging.FieldEventType, "grant_removed"),
		)
		return grant, Advance{Kind: AdvanceRemoved, Applied: []string{TransitionRemove}}, nil
	}

	fields, err := grant.Fields()
	if err != nil {
		return nil, Advance{}, services.AsBusiness(fmt.Sprintf("grant %q has malformed fields", grant.Name), err)
	}

	result := Advance{Kind: AdvanceNone}
	current := grant
	for _, name := range closingSequence {
		if !current.Offers(name) {
			continue
		}
		if fields.PlannedDate == nil || fields.EndDate == nil {
			result.Kind = AdvanceHalted
			logger.Warn("grant lacks planned or end date; closing stopped",
				logging.String(logging.FieldTransition, name),
				logging.String(logging.FieldEventType, "closing_halted"),
				logging.String(logging.FieldErrorHint, "set the planned and end dates on the grant in Nexus"),
			)
			break
		}

		if _, err := o.client.ApplyTransition(ctx, current, name, closingChanges(fields)); err != nil {
			return nil, result, fmt.Errorf("apply %s to grant %q: %w", name, grant.Name, err)
		}
		o.tracker.TrackTask(ctx, o.processName)
		result.Applied = append(result.Applied, name)
		result.Kind = AdvanceTransitioned
		logger.Info("transition applied",
			logging.String(logging.FieldTransition, name),
			logging.String(logging.FieldEventType, "transition_applied"),
		)

		refreshed, err := o.client.Refresh(ctx, current)
		if err != nil {
			return nil, result, fmt.Errorf("refresh grant %q after %s: %w", grant.Name, name, err)
		}
		current = refreshed
	}
	return current, result, nil
}

// closingChanges is the element payload sent with every closing transition.
func closingChanges(fields nexus.GrantFields) map[string]any {
	planned := dateValue(fields.PlannedDate)
	return map[string]any{
		"orderedDate":          planned,
		"workflowApprovedDate": planned,
		"entryDate":            planned,
		"billingStartDate":     planned,
		"billingEndDate":       dateValue(fields.EndDate),
		"repetition": map[string]any{
			"pattern":     "DAY",
			"count":       1,
			"weekdays":    1,
			"weekenddays": 0,
			"shifts": []map[string]any{
				{"title": "Dag"},
			},
		},
		"resourceCount": 1,
	}
}

func dateValue(d *nexus.Date) string {
	if d.Raw != "" {
		return d.Raw
	}
	return d.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func isRemovedActivity(name string) bool {
	_, ok := removedGrantNames[name]
	return ok
}
