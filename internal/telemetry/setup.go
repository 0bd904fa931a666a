package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"grantcloser/internal/config"
	"grantcloser/internal/logging"
	"grantcloser/internal/sqldb"
)

// Setup is the tracker assembled from configuration plus the resources it holds.
type Setup struct {
	Tracker Tracker
	db      *sql.DB
}

// NewFromConfig builds the tracker for the enabled sinks. With no sink enabled
// the tracker is a Nop.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Setup, error) {
	logger = logging.NewComponentLogger(logger, "telemetry")
	setup := &Setup{}
	var trackers Fanout

	if cfg.Tracking.Enabled {
		db, err := sqldb.Open(ctx, cfg.Tracking.Driver, cfg.Tracking.DSN)
		if err != nil {
			return nil, fmt.Errorf("open tracking database: %w", err)
		}
		setup.db = db
		trackers = append(trackers, NewSQLTracker(db, cfg.Tracking.Driver, cfg.Tracking.Table, logger))
	}
	if cfg.Metrics.Enabled {
		trackers = append(trackers, NewPrometheusTracker(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job))
	}

	switch len(trackers) {
	case 0:
		setup.Tracker = Nop{}
	case 1:
		setup.Tracker = trackers[0]
	default:
		setup.Tracker = trackers
	}
	return setup, nil
}

// Close flushes buffered signals and releases the tracking database.
func (s *Setup) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var flushErr error
	if flusher, ok := s.Tracker.(Flusher); ok {
		flushErr = flusher.Flush(ctx)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && flushErr == nil {
			return fmt.Errorf("close tracking database: %w", err)
		}
	}
	return flushErr
}
