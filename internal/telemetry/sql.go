package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"grantcloser/internal/sqldb"
)

// SQLTracker inserts one row per signal into a tracking table with columns
// process_name, kind and tracked_at. The table must already exist.
type SQLTracker struct {
	db     *sql.DB
	insert string
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLTracker builds a tracker writing to table. The table name must be
// validated by the caller; it is interpolated into the statement.
func NewSQLTracker(db *sql.DB, driver, table string, logger *slog.Logger) *SQLTracker {
	insert := fmt.Sprintf(
		"INSERT INTO %s (process_name, kind, tracked_at) VALUES (%s, %s, %s)",
		table,
		sqldb.Placeholder(driver, 1),
		sqldb.Placeholder(driver, 2),
		sqldb.Placeholder(driver, 3),
	)
	return &SQLTracker{db: db, insert: insert, logger: logger, now: time.Now}
}

func (t *SQLTracker) TrackTask(ctx context.Context, processName string) {
	t.track(ctx, processName, KindTask)
}

func (t *SQLTracker) TrackPartialTask(ctx context.Context, processName string) {
	t.track(ctx, processName, KindPartialTask)
}

func (t *SQLTracker) track(ctx context.Context, processName string, kind Kind) {
	if _, err := t.db.ExecContext(ctx, t.insert, processName, string(kind), t.now().UTC()); err != nil {
		logFailure(t.logger, "sql", kind, err)
	}
}
