package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusNew,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a user supplied status name.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// IsTerminal reports whether the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item represents a work item persisted in SQLite.
type Item struct {
	ID         int64
	Reference  string
	DataJSON   string
	Status     Status
	Message    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// DecodeData unmarshals the item payload into dst.
func (i *Item) DecodeData(dst any) error {
	if i == nil || i.DataJSON == "" {
		return fmt.Errorf("item has no data")
	}
	if err := json.Unmarshal([]byte(i.DataJSON), dst); err != nil {
		return fmt.Errorf("decode item %d data: %w", i.ID, err)
	}
	return nil
}
