package escalate

// Application-wide defaults shared by config loading and the CLI.
const (
	DefaultAppName      = "escalate"
	DefaultConfigPath   = "/etc/escalate"
	DefaultDatabaseDir  = "./data"
	DefaultDatabaseDSN  = "./data/escalate.db"
	DefaultArtifactPath = "./artifacts/model.json"
	DefaultStateTTL     = 86400 // seconds; enforced by the durable backend
)
