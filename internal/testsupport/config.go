package testsupport

import (
	"path/filepath"
	"testing"

	"grantcloser/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.RulesFile = filepath.Join(base, "Regelsæt.xlsx")
	cfgVal.Nexus.BaseURL = "http://127.0.0.1:0/api/"
	cfgVal.Nexus.TokenURL = "http://127.0.0.1:0/token"
	cfgVal.Nexus.ClientID = "test"
	cfgVal.Nexus.ClientSecret = "test"
	cfgVal.Database.Driver = config.DriverSQLite
	cfgVal.Database.DSN = filepath.Join(base, "nexus.db")
	cfgVal.Workflow.FetchRetryDelaySeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithNexusURL points the Nexus client at a test server.
func WithNexusURL(baseURL, tokenURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Nexus.BaseURL = baseURL
		b.cfg.Nexus.TokenURL = tokenURL
	}
}

// WithFetchAttempts overrides the populate retry count.
func WithFetchAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.FetchAttempts = attempts
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
