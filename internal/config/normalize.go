package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNexus()
	c.normalizeDatabase()
	c.normalizeTracking()
	c.normalizeMetrics()
	if err := c.normalizeTracing(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RulesFile) == "" {
		c.Paths.RulesFile = defaultRulesFile
	}
	if c.Paths.RulesFile, err = expandPath(c.Paths.RulesFile); err != nil {
		return fmt.Errorf("paths.rules_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeNexus() {
	c.Nexus.Instance = envFallback(c.Nexus.Instance, "NEXUS_INSTANCE")
	c.Nexus.ClientID = envFallback(c.Nexus.ClientID, "NEXUS_CLIENT_ID")
	c.Nexus.ClientSecret = envFallback(c.Nexus.ClientSecret, "NEXUS_CLIENT_SECRET")
	c.Nexus.BaseURL = strings.TrimSpace(c.Nexus.BaseURL)
	c.Nexus.TokenURL = strings.TrimSpace(c.Nexus.TokenURL)
	if c.Nexus.Instance != "" {
		if c.Nexus.BaseURL == "" {
			c.Nexus.BaseURL = fmt.Sprintf(nexusBaseURLTemplate, c.Nexus.Instance, c.Nexus.Instance)
		}
		if c.Nexus.TokenURL == "" {
			c.Nexus.TokenURL = fmt.Sprintf(nexusTokenURLTemplate, c.Nexus.Instance)
		}
	}
	if c.Nexus.TimeoutSeconds <= 0 {
		c.Nexus.TimeoutSeconds = defaultNexusTimeoutSeconds
	}
}

func (c *Config) normalizeDatabase() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDatabaseDriver
	}
	c.Database.DSN = envFallback(c.Database.DSN, "NEXUS_DB_DSN")
	c.Database.Host = strings.TrimSpace(c.Database.Host)
	c.Database.Name = strings.TrimSpace(c.Database.Name)
	if c.Database.Port <= 0 {
		c.Database.Port = defaultDatabasePort
	}
	if strings.TrimSpace(c.Database.Query) == "" {
		c.Database.Query = DefaultCitizenQuery
	}
}

func (c *Config) normalizeTracking() {
	c.Tracking.Driver = strings.ToLower(strings.TrimSpace(c.Tracking.Driver))
	if c.Tracking.Driver == "" {
		c.Tracking.Driver = defaultTrackingDriver
	}
	c.Tracking.DSN = envFallback(c.Tracking.DSN, "TRACKING_DSN")
	c.Tracking.Table = strings.TrimSpace(c.Tracking.Table)
	if c.Tracking.Table == "" {
		c.Tracking.Table = defaultTrackingTable
	}
}

func (c *Config) normalizeMetrics() {
	c.Metrics.PushgatewayURL = strings.TrimRight(strings.TrimSpace(c.Metrics.PushgatewayURL), "/")
	c.Metrics.Job = strings.TrimSpace(c.Metrics.Job)
	if c.Metrics.Job == "" {
		c.Metrics.Job = defaultMetricsJob
	}
}

func (c *Config) normalizeTracing() error {
	c.Tracing.Output = strings.TrimSpace(c.Tracing.Output)
	if c.Tracing.Output == "" || c.Tracing.Output == "stdout" {
		return nil
	}
	expanded, err := expandPath(c.Tracing.Output)
	if err != nil {
		return fmt.Errorf("tracing.output: %w", err)
	}
	c.Tracing.Output = expanded
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = envFallback(c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.ProcessName = strings.TrimSpace(c.Workflow.ProcessName)
	if c.Workflow.ProcessName == "" {
		c.Workflow.ProcessName = defaultProcessName
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
