// Package logging assembles structured slog loggers and formatting helpers used
// across grantcloser.
//
// It owns the console/JSON handlers, centralizes level and output plumbing
// (stdout plus the log file in the state directory), and exposes
// context-aware helpers so runner code can automatically tag log lines with
// queue item IDs, run stages, grant names, and correlation IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// CPR numbers are personal data. Both handlers mask values logged under the
// cpr key; use MaskCPR when a CPR ends up anywhere else.
package logging
