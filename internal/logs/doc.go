// Package logs reads the run log in the state directory for the
// "grantcloser logs" command. Tail returns the last lines or everything after
// an offset, optionally waiting for new output and keeping only lines that
// contain a match string such as a run ID.
package logs
