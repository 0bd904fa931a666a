package closure

import (
	"context"
	"fmt"
	"log/slog"

	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/telemetry"
)

// ActionScheduled is the order grant action that books the order in the
// supplier's calendar.
const ActionScheduled = "Planlagt"

// Scheduler marks a closed grant's supplier order as scheduled.
type Scheduler struct {
	client      SupplierCalendars
	tracker     telemetry.Tracker
	processName string
	logger      *slog.Logger
}

// NewScheduler builds a scheduler. A nil tracker discards signals.
func NewScheduler(client SupplierCalendars, tracker telemetry.Tracker, processName string, logger *slog.Logger) *Scheduler {
	if tracker == nil {
		tracker = telemetry.Nop{}
	}
	return &Scheduler{
		client:      client,
		tracker:     tracker,
		processName: processName,
		logger:      logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Schedule executes the "Planlagt" action on the supplier order belonging to
// grant. It reports false without error when there is nothing to schedule.
func (s *Scheduler) Schedule(ctx context.Context, grant *nexus.Grant) (bool, error) {
	if grant == nil {
		return false, nil
	}
	logger := logging.WithContext(ctx, s.logger)

	fields, err := grant.Fields()
	if err != nil {
		logging.WarnWithContext(logger, "grant has malformed fields; order not scheduled", "grant_malformed",
			logging.String(logging.FieldGrant, grant.Name),
			logging.Error(err),
		)
		return false, nil
	}
	if fields.Supplier == nil || fields.Supplier.OrganizationName == "" {
		return false, nil
	}
	org, err := s.client.OrganizationByName(ctx, fields.Supplier.OrganizationName)
	if err != nil {
		return false, fmt.Errorf("look up supplier %q: %w", fields.Supplier.OrganizationName, err)
	}
	if org == nil {
		logger.Debug("supplier organization not found",
			logging.String("supplier", fields.Supplier.OrganizationName),
		)
		return false, nil
	}
	calendars, err := s.client.SchedulingCalendars(ctx, org)
	if err != nil {
		return false, err
	}
	if len(calendars) == 0 {
		return false, nil
	}

	action, found, err := s.findScheduledAction(ctx, calendars, grant.CurrentOrderGrantID)
	if err != nil || !found {
		return false, err
	}
	if err := s.client.ExecuteAction(ctx, action); err != nil {
		return false, fmt.Errorf("execute %s on order %s: %w", ActionScheduled, grant.CurrentOrderGrantID, err)
	}
	s.tracker.TrackPartialTask(ctx, s.processName)
	logger.Info("supplier order scheduled",
		logging.String("supplier", org.Name),
		logging.String("order_grant_id", grant.CurrentOrderGrantID.String()),
		logging.String(logging.FieldEventType, "order_scheduled"),
	)
	return true, nil
}

// findScheduledAction returns the first "Planlagt" action of the order grant
// with the given id. A matched order without the action ends the search of
// that calendar; the next calendar is still searched.
func (s *Scheduler) findScheduledAction(ctx context.Context, calendars []nexus.SchedulingCalendar, orderID nexus.ID) (*nexus.Action, bool, error) {
	if orderID == "" {
		return nil, false, nil
	}
	for _, summary := range calendars {
		calendar, err := s.client.Calendar(ctx, summary)
		if err != nil {
			return nil, false, err
		}
		action, found, err := s.searchCalendar(ctx, calendar, orderID)
		if err != nil || found {
			return action, found, err
		}
	}
	return nil, false, nil
}

func (s *Scheduler) searchCalendar(ctx context.Context, calendar *nexus.SchedulingCalendar, orderID nexus.ID) (*nexus.Action, bool, error) {
	pages, err := s.client.OrderGrantPages(ctx, calendar)
	if err != nil {
		return nil, false, err
	}
	for _, page := range pages {
		orders, err := s.client.OrderGrants(ctx, page)
		if err != nil {
			return nil, false, fmt.Errorf("list order grants: %w", err)
		}
		for i := range orders {
			if !orders[i].MatchesOrderID(orderID) {
				continue
			}
			action, ok := orders[i].Action(ActionScheduled)
			return action, ok, nil
		}
	}
	return nil, false, nil
}
