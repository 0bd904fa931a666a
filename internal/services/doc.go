// Package services defines shared utilities consumed by the closure engine,
// the batch runner, and the external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, run stages, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let the batch runner
//     tell business failures (mark the item failed, keep going) apart from
//     everything else (stop the run).
//
// Use these helpers when wiring new integrations so operational behaviour
// (error classification, observability) stays uniform across the robot.
package services
