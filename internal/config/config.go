package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	RulesFile string `toml:"rules_file"`
}

// Nexus contains the KMD Nexus API connection settings.
type Nexus struct {
	Instance       string `toml:"instance"`
	BaseURL        string `toml:"base_url"`
	TokenURL       string `toml:"token_url"`
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Database contains the connection settings for the Nexus reporting database
// used to find citizens with planned grants.
type Database struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	Query    string `toml:"query"`
}

// Tracking contains the SQL sink for task-completed telemetry.
type Tracking struct {
	Enabled bool   `toml:"enabled"`
	Driver  string `toml:"driver"`
	DSN     string `toml:"dsn"`
	Table   string `toml:"table"`
}

// Metrics contains Prometheus counter settings.
type Metrics struct {
	Enabled        bool   `toml:"enabled"`
	PushgatewayURL string `toml:"pushgateway_url"`
	Job            string `toml:"job"`
}

// Tracing contains OpenTelemetry span export settings.
type Tracing struct {
	Enabled bool   `toml:"enabled"`
	Output  string `toml:"output"`
}

// Notifications contains the ntfy endpoint for run summaries.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Workflow contains run timing and naming.
type Workflow struct {
	ProcessName            string `toml:"process_name"`
	FetchAttempts          int    `toml:"fetch_attempts"`
	FetchRetryDelaySeconds int    `toml:"fetch_retry_delay_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for grantcloser.
//
// Configuration sections by subsystem:
//   - Paths: state directory (queue database, lock, logs) and rule workbook
//   - Nexus: API instance and OAuth2 client credentials
//   - Database: citizen lookup query against the Nexus database
//   - Tracking: SQL sink for task-completed signals
//   - Metrics: Prometheus counters and optional Pushgateway
//   - Tracing: per-citizen span export
//   - Notifications: ntfy run summaries
//   - Workflow: process name and populate retry timing
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Nexus         Nexus         `toml:"nexus"`
	Database      Database      `toml:"database"`
	Tracking      Tracking      `toml:"tracking"`
	Metrics       Metrics       `toml:"metrics"`
	Tracing       Tracing       `toml:"tracing"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/grantcloser/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// applied to the process environment first so credential fallbacks can read it.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	// Existing environment variables win over the file.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file %q not found", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("grantcloser.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory used for the queue database,
// run lock, and log file.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// QueueDBPath returns the SQLite work queue location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "grantcloser.lock")
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "grantcloser.log")
}

// DatabaseDSN returns the citizen database connection string, composing one
// from the discrete host fields when no DSN is configured.
func (c *Config) DatabaseDSN() string {
	if dsn := strings.TrimSpace(c.Database.DSN); dsn != "" {
		return dsn
	}
	if strings.TrimSpace(c.Database.Host) == "" {
		return ""
	}
	switch c.Database.Driver {
	case DriverPostgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			escapeUserInfo(c.Database.User), escapeUserInfo(c.Database.Password),
			c.Database.Host, c.Database.Port, c.Database.Name)
	default:
		return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			escapeUserInfo(c.Database.User), escapeUserInfo(c.Database.Password),
			c.Database.Host, c.Database.Port, c.Database.Name)
	}
}

func escapeUserInfo(value string) string {
	replacer := strings.NewReplacer("%", "%25", "@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return replacer.Replace(value)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
