package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Next claims the oldest new item by moving it to in_progress. It returns nil
// when no new items remain.
func (s *Store) Next(ctx context.Context) (*Item, error) {
	ctx = ensureContext(ctx)
	now := timestamp(time.Now())

	var item *Item
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE work_items
             SET status = ?, started_at = ?, updated_at = ?, message = NULL
             WHERE id = (
                 SELECT id FROM work_items WHERE status = ? ORDER BY id LIMIT 1
             )
             RETURNING `+itemColumns,
			StatusInProgress,
			now,
			now,
			StatusNew,
		)
		claimed, scanErr := scanItem(row)
		if scanErr != nil {
			return scanErr
		}
		item = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next item: %w", err)
	}
	return item, nil
}

// Complete marks an in-progress item completed with an optional message.
func (s *Store) Complete(ctx context.Context, id int64, message string) error {
	return s.finish(ctx, id, StatusCompleted, message)
}

// Fail marks an in-progress item failed and records the reason.
func (s *Store) Fail(ctx context.Context, id int64, message string) error {
	return s.finish(ctx, id, StatusFailed, message)
}

func (s *Store) finish(ctx context.Context, id int64, status Status, message string) error {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET status = ?, message = ?, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		status,
		nullableString(message),
		now,
		now,
		id,
		StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("mark item %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark item %d %s: item is not in progress", id, status)
	}
	return nil
}

// ResetStuck returns items left in_progress by an interrupted run to new.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET status = ?, started_at = NULL, message = 'Reset from stuck processing', updated_at = ?
         WHERE status = ?`,
		StatusNew,
		timestamp(time.Now()),
		StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}
