// Command grantcloser closes out "Planlagt, ikke bestilt" grants in KMD Nexus.
//
// Run with --queue to enqueue the citizens returned by the Nexus reporting
// database; run without it to work the queue. The queue and config
// subcommands inspect and maintain local state, show prints the run log and
// test-notify checks the ntfy topic.
package main
