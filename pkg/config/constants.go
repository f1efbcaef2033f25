package config

const (
	EnvPrefix = "RESELLR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "RESELLR_APP_ENV"
	EnvPort   = "RESELLR_APP_PORT"

	EnvDBDSN  = "RESELLR_DB_DSN"
	EnvDBHost = "RESELLR_DB_HOST"
	EnvDBUser = "RESELLR_DB_USER"
	EnvDBName = "RESELLR_DB_NAME"

	EnvRedisURL = "RESELLR_REDIS_URL"

	EnvJWTSecret  = "RESELLR_JWT_SECRET"
	EnvJWTIssuer  = "RESELLR_JWT_ISSUER"
	EnvJWTExpMins = "RESELLR_JWT_EXPIRATION_MINUTES"

	EnvSellSessionTTL    = "RESELLR_SELL_SESSION_TTL"
	EnvSellSessionSecret = "RESELLR_SELL_SESSION_SECRET"
	EnvSellProcessingFee = "RESELLR_SELL_PROCESSING_FEE"

	EnvPubSubSellTopic = "RESELLR_PUBSUB_SELL_EVENTS_TOPIC"
	EnvGCPProjectID    = "RESELLR_GCP_PROJECT_ID"

	minSessionSecretLen = 16
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
