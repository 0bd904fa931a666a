// Package config loads, normalizes, and validates grantcloser configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NEXUS_CLIENT_ID and NEXUS_DB_DSN so credentials never have to live in the
// file itself. The Config type centralizes every knob the CLI needs: the rule
// workbook location, Nexus API credentials, the citizen database, telemetry
// sinks, and retry timing for the populate run.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
