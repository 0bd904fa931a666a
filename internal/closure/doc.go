// Package closure holds the grant closure logic: finding a citizen's overdue
// "Planlagt, ikke bestilt" grants, walking each through the approve, order and
// close transitions, and marking the matching supplier order as scheduled.
//
// The package talks to Nexus only through the small interfaces in clients.go,
// which *nexus.Client satisfies.
package closure
