package config

// Supported database/sql driver names for the citizen database and tracking sink.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "pgx"
	DriverSQLite    = "sqlite"
)

const (
	defaultStateDir               = "~/.local/share/grantcloser"
	defaultRulesFile              = "./Regelsæt.xlsx"
	defaultNexusTimeoutSeconds    = 30
	defaultDatabaseDriver         = DriverSQLServer
	defaultDatabasePort           = 1433
	defaultTrackingDriver         = DriverSQLServer
	defaultTrackingTable          = "Tracking"
	defaultMetricsJob             = "grantcloser"
	defaultNtfyTimeoutSeconds     = 10
	defaultProcessName            = "Afslutning af Planlagt, ikke bestilt"
	defaultFetchAttempts          = 3
	defaultFetchRetryDelaySeconds = 5
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	nexusBaseURLTemplate          = "https://%s.nexus.kmd.dk/api/core/mobile/%s/v2/"
	nexusTokenURLTemplate         = "https://iam.nexus.kmd.dk/authx/realms/%s/protocol/openid-connect/token"
)

// DefaultCitizenQuery lists the CPR numbers of citizens holding at least one
// basket grant in the "Planlagt, ikke bestilt" workflow state.
const DefaultCitizenQuery = `SELECT DISTINCT p.cpr AS Cpr
FROM patient p
JOIN basket_grant bg ON bg.patient_id = p.id
JOIN workflow_state ws ON ws.id = bg.workflow_state_id
WHERE ws.name = 'Planlagt, ikke bestilt'
  AND bg.active = 1
ORDER BY p.cpr`

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			RulesFile: defaultRulesFile,
		},
		Nexus: Nexus{
			TimeoutSeconds: defaultNexusTimeoutSeconds,
		},
		Database: Database{
			Driver: defaultDatabaseDriver,
			Port:   defaultDatabasePort,
			Query:  DefaultCitizenQuery,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Tracking: Tracking{
			Driver: defaultTrackingDriver,
			Table:  defaultTrackingTable,
		},
		Metrics: Metrics{
			Job: defaultMetricsJob,
		},
		Workflow: Workflow{
			ProcessName:            defaultProcessName,
			FetchAttempts:          defaultFetchAttempts,
			FetchRetryDelaySeconds: defaultFetchRetryDelaySeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
