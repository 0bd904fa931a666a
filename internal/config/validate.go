package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var trackingTablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate ensures the configuration is structurally usable. Credentials are
// checked separately by RequireNexus and RequireDatabase because only the
// populate and process runs need them.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateTracking(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireNexus reports whether the Nexus API settings are complete.
func (c *Config) RequireNexus() error {
	if c.Nexus.BaseURL == "" {
		return fmt.Errorf("nexus.instance or nexus.base_url is required. Set NEXUS_INSTANCE or edit %s", configHint())
	}
	if c.Nexus.TokenURL == "" {
		return errors.New("nexus.token_url is required when nexus.instance is not set")
	}
	if c.Nexus.ClientID == "" || c.Nexus.ClientSecret == "" {
		return fmt.Errorf("nexus.client_id and nexus.client_secret are required. Set NEXUS_CLIENT_ID/NEXUS_CLIENT_SECRET or edit %s", configHint())
	}
	return nil
}

// RequireDatabase reports whether the citizen database settings are complete.
func (c *Config) RequireDatabase() error {
	if c.DatabaseDSN() == "" {
		return fmt.Errorf("database.dsn or database.host is required. Set NEXUS_DB_DSN or edit %s", configHint())
	}
	return nil
}

func configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return "~/.config/grantcloser/config.toml (create with 'grantcloser config init')"
	}
	return path + " (create with 'grantcloser config init')"
}

func (c *Config) validateDatabase() error {
	if !supportedDriver(c.Database.Driver) {
		return fmt.Errorf("database.driver: unsupported value %q (want %s, %s or %s)", c.Database.Driver, DriverSQLServer, DriverPostgres, DriverSQLite)
	}
	if strings.TrimSpace(c.Database.Query) == "" {
		return errors.New("database.query must not be empty")
	}
	return nil
}

func (c *Config) validateTracking() error {
	if !c.Tracking.Enabled {
		return nil
	}
	if !supportedDriver(c.Tracking.Driver) {
		return fmt.Errorf("tracking.driver: unsupported value %q", c.Tracking.Driver)
	}
	if c.Tracking.DSN == "" {
		return errors.New("tracking.dsn must be set when tracking.enabled is true (or set TRACKING_DSN)")
	}
	if !trackingTablePattern.MatchString(c.Tracking.Table) {
		return fmt.Errorf("tracking.table: invalid table name %q", c.Tracking.Table)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.PushgatewayURL == "" {
		return nil
	}
	if !isHTTPURL(c.Metrics.PushgatewayURL) {
		return fmt.Errorf("metrics.pushgateway_url must be an http(s) URL, got %q", c.Metrics.PushgatewayURL)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if !isHTTPURL(c.Notifications.NtfyTopic) {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func isHTTPURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.FetchAttempts <= 0 {
		return errors.New("workflow.fetch_attempts must be positive")
	}
	if c.Workflow.FetchRetryDelaySeconds < 0 {
		return errors.New("workflow.fetch_retry_delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func supportedDriver(driver string) bool {
	switch driver {
	case DriverSQLServer, DriverPostgres, DriverSQLite:
		return true
	default:
		return false
	}
}
