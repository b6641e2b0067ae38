package config

const EnvPrefix = "SHOPORA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SHOPORA_APP_ENV"
	EnvPort     = "SHOPORA_APP_PORT"
	EnvLogLevel = "SHOPORA_LOG_LEVEL"

	EnvDBDSN  = "SHOPORA_DB_DSN"
	EnvDBHost = "SHOPORA_DB_HOST"
	EnvDBUser = "SHOPORA_DB_USER"
	EnvDBName = "SHOPORA_DB_NAME"

	EnvRedisURL = "SHOPORA_REDIS_URL"

	EnvJWTSecret              = "SHOPORA_JWT_SECRET"
	EnvJWTIssuer              = "SHOPORA_JWT_ISSUER"
	EnvJWTExpMins             = "SHOPORA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SHOPORA_REFRESH_TOKEN_TTL_MINUTES"

	EnvPricingFreeShippingThreshold = "SHOPORA_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvPricingFlatShippingFee       = "SHOPORA_PRICING_FLAT_SHIPPING_FEE"
	EnvPricingTaxRate               = "SHOPORA_PRICING_TAX_RATE"

	EnvKafkaBrokers     = "SHOPORA_KAFKA_BROKERS"
	EnvKafkaOrdersTopic = "SHOPORA_KAFKA_ORDERS_TOPIC"
)
