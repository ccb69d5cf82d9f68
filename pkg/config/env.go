package config

// EnvPrefix scopes every variable envconfig reads.
const EnvPrefix = "MEMBERSTOCK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "MEMBERSTOCK_DB_DSN"
	EnvDBHost = "MEMBERSTOCK_DB_HOST"
	EnvDBUser = "MEMBERSTOCK_DB_USER"
	EnvDBName = "MEMBERSTOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
