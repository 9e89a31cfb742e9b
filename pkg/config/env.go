package config

// EnvPrefix is passed to envconfig; every variable below also spells the
// prefix out explicitly so the full name is greppable.
const EnvPrefix = "PAGBANK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PAGBANK_DB_DSN"
	EnvDBHost = "PAGBANK_DB_HOST"
	EnvDBUser = "PAGBANK_DB_USER"
	EnvDBName = "PAGBANK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
