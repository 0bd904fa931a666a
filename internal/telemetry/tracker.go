package telemetry

import (
	"context"
	"errors"
	"log/slog"
)

// Kind distinguishes full and partial task signals.
type Kind string

const (
	KindTask        Kind = "task"
	KindPartialTask Kind = "partial_task"
)

// Tracker receives task signals for a named process.
type Tracker interface {
	TrackTask(ctx context.Context, processName string)
	TrackPartialTask(ctx context.Context, processName string)
}

// Flusher is implemented by trackers that buffer signals until the run ends.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Nop discards every signal.
type Nop struct{}

func (Nop) TrackTask(context.Context, string) {}

func (Nop) TrackPartialTask(context.Context, string) {}

// Fanout forwards each signal to every tracker in order.
type Fanout []Tracker

func (f Fanout) TrackTask(ctx context.Context, processName string) {
	for _, t := range f {
		t.TrackTask(ctx, processName)
	}
}

func (f Fanout) TrackPartialTask(ctx context.Context, processName string) {
	for _, t := range f {
		t.TrackPartialTask(ctx, processName)
	}
}

// Flush flushes every member that buffers signals.
func (f Fanout) Flush(ctx context.Context) error {
	var errs []error
	for _, t := range f {
		if flusher, ok := t.(Flusher); ok {
			if err := flusher.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps signals in memory. Tests use it to assert what was tracked.
type Recorder struct {
	Signals []Signal
}

// Signal is one recorded tracker call.
type Signal struct {
	Kind        Kind
	ProcessName string
}

func (r *Recorder) TrackTask(_ context.Context, processName string) {
	r.Signals = append(r.Signals, Signal{Kind: KindTask, ProcessName: processName})
}

func (r *Recorder) TrackPartialTask(_ context.Context, processName string) {
	r.Signals = append(r.Signals, Signal{Kind: KindPartialTask, ProcessName: processName})
}

// Count returns how many signals of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	n := 0
	for _, s := range r.Signals {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func logFailure(logger *slog.Logger, sink string, kind Kind, err error) {
	if logger == nil {
		return
	}
	logger.Warn("telemetry signal dropped",
		slog.String("sink", sink),
		slog.String("kind", string(kind)),
		slog.Any("error", err),
		slog.String("event_type", "telemetry_failed"),
		slog.String("error_hint", "check the tracking database or pushgateway"),
	)
}
