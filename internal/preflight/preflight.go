package preflight

import (
	"context"

	"grantcloser/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckRules(cfg.Paths.RulesFile),
		CheckNexus(ctx, cfg),
		CheckDatabase(ctx, "Citizen database", cfg.Database.Driver, cfg.DatabaseDSN()),
	}
	if cfg.Tracking.Enabled {
		results = append(results, CheckDatabase(ctx, "Tracking database", cfg.Tracking.Driver, cfg.Tracking.DSN))
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
