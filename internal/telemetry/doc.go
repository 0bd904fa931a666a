// Package telemetry records fire-and-forget "task completed" signals.
//
// Every transition applied to a grant counts as a task; executing a supplier
// order action counts as a partial task. Trackers never return errors to the
// caller: a failed write is logged and the run carries on, because the signals
// are bookkeeping and have no bearing on the grants themselves.
package telemetry
