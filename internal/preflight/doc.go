// Package preflight provides readiness checks for the services and paths a
// grantcloser run depends on.
//
// The "config validate" command runs every check and prints the results.
// Checks for optional sinks such as the tracking database run only when the
// sink is enabled.
package preflight
