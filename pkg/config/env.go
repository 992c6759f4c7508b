package config

const EnvPrefix = "SPLITPAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "SPLITPAY_APP_ENV"
	EnvPort          = "SPLITPAY_APP_PORT"
	EnvLogLevel      = "SPLITPAY_LOG_LEVEL"
	EnvPublicBaseURL = "SPLITPAY_PUBLIC_BASE_URL"

	EnvDBDSN  = "SPLITPAY_DB_DSN"
	EnvDBHost = "SPLITPAY_DB_HOST"
	EnvDBPort = "SPLITPAY_DB_PORT"
	EnvDBUser = "SPLITPAY_DB_USER"
	EnvDBPass = "SPLITPAY_DB_PASSWORD"
	EnvDBName = "SPLITPAY_DB_NAME"
	EnvDBSSL  = "SPLITPAY_DB_SSLMODE"

	EnvRedisURL  = "SPLITPAY_REDIS_URL"
	EnvUseSQLite = "SPLITPAY_USE_SQLITE"

	EnvStripeAPIKey = "SPLITPAY_STRIPE_API_KEY"
	EnvStripeSecret = "SPLITPAY_STRIPE_SECRET"

	EnvSquareAccessToken = "SPLITPAY_SQUARE_ACCESS_TOKEN"
	EnvSquareLocationID  = "SPLITPAY_SQUARE_LOCATION_ID"

	EnvGCPProjectID          = "SPLITPAY_GCP_PROJECT_ID"
	EnvPubSubCollectionTopic = "SPLITPAY_PUBSUB_COLLECTIONS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
