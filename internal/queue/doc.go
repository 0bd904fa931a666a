// Package queue persists work items in SQLite and exposes helpers for driving
// their lifecycle.
//
// Each item carries a reference (the citizen CPR number for grant closure
// runs), a JSON data payload, a status, and the message recorded when it
// finished. The populate run adds items in the new state; the process run
// claims them one at a time with Next and settles each with Complete or Fail.
//
// The database is treated as transient storage for in-flight work rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
