package config

const (
	EnvPrefix = "PERFUMERY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv            = "PERFUMERY_APP_ENV"
	EnvPort              = "PERFUMERY_APP_PORT"
	EnvDBDSN             = "PERFUMERY_DB_DSN"
	EnvDBHost            = "PERFUMERY_DB_HOST"
	EnvDBUser            = "PERFUMERY_DB_USER"
	EnvDBName            = "PERFUMERY_DB_NAME"
	EnvDBPassword        = "PERFUMERY_DB_PASSWORD"
	EnvUseSQLite         = "PERFUMERY_USE_SQLITE"
	EnvRedisURL          = "PERFUMERY_REDIS_URL"
	EnvJWTSecret         = "PERFUMERY_JWT_SECRET"
	EnvJWTIssuer         = "PERFUMERY_JWT_ISSUER"
	EnvJWTExpMins        = "PERFUMERY_JWT_EXPIRATION_MINUTES"
	EnvCORSOrigins       = "PERFUMERY_CORS_ALLOWED_ORIGINS"
	EnvAutomationAPIKey  = "PERFUMERY_AUTOMATION_API_KEY"
	EnvRefreshTokenTTLMi = "PERFUMERY_REFRESH_TOKEN_TTL_MINUTES"
	EnvPasswordMinLen    = "PERFUMERY_PASSWORD_MIN_LENGTH"
	EnvRateLimitRPS      = "PERFUMERY_RATE_LIMIT_RPS"
	EnvAutoMigrate       = "PERFUMERY_AUTO_MIGRATE"
	EnvSQLitePath        = "PERFUMERY_SQLITE_PATH"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
