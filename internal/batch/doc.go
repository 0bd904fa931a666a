// Package batch drives the two robot runs over the SQLite work queue.
//
// Populate asks the Nexus reporting database for citizens holding a
// "Planlagt, ikke bestilt" grant and enqueues one item per citizen. Process
// claims items one at a time and runs each citizen through the closure
// pipeline: eligibility filter, transition orchestrator and supplier order
// scheduler. Every claimed item ends either completed or failed.
package batch
