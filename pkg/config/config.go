package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Pricing       PricingConfig
	Catalog       CatalogConfig
	CORS          CORSConfig
	Kafka         KafkaConfig
	Outbox        OutboxConfig
	Stripe        StripeConfig
}

// Load reads the SHOPORA_* environment. Every semantic problem is reported at
// once so a broken deploy needs a single round trip to fix.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := multierr.Combine(cfg.DB.resolveDSN(), cfg.Pricing.validate()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Name         string `envconfig:"SHOPORA_APP_NAME" default:"Shopora"`
	Version      string `envconfig:"SHOPORA_APP_VERSION" default:"1.0.0"`
	Env          string `envconfig:"SHOPORA_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPORA_DB_DSN"`
	Driver string `envconfig:"SHOPORA_DB_DRIVER" default:"postgres"`

	// Parts are only read when DSN is empty.
	Host     string `envconfig:"SHOPORA_DB_HOST"`
	Port     int    `envconfig:"SHOPORA_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPORA_DB_USER"`
	Password string `envconfig:"SHOPORA_DB_PASSWORD"`
	Name     string `envconfig:"SHOPORA_DB_NAME"`
	SSLMode  string `envconfig:"SHOPORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"SHOPORA_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPORA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPORA_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SHOPORA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SHOPORA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SHOPORA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SHOPORA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHOPORA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHOPORA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHOPORA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHOPORA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHOPORA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SHOPORA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SHOPORA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SHOPORA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SHOPORA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SHOPORA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SHOPORA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate            bool `envconfig:"SHOPORA_AUTO_MIGRATE" default:"false"`
	DecrementStockOnOrder  bool `envconfig:"SHOPORA_DECREMENT_STOCK_ON_ORDER" default:"true"`
	MergeGuestCartOnLogin  bool `envconfig:"SHOPORA_MERGE_GUEST_CART_ON_LOGIN" default:"true"`
	EmailNotifications     bool `envconfig:"SHOPORA_FEATURE_EMAIL_NOTIFICATIONS" default:"false"`
	ImageUpload            bool `envconfig:"SHOPORA_FEATURE_IMAGE_UPLOAD" default:"false"`
	IdempotentOrderCreates bool `envconfig:"SHOPORA_FEATURE_IDEMPOTENT_ORDERS" default:"true"`
}

// PricingConfig holds the checkout totals policy. Amounts are decimal strings.
type PricingConfig struct {
	FreeShippingThreshold string `envconfig:"SHOPORA_PRICING_FREE_SHIPPING_THRESHOLD" default:"50"`
	FlatShippingFee       string `envconfig:"SHOPORA_PRICING_FLAT_SHIPPING_FEE" default:"10"`
	TaxRate               string `envconfig:"SHOPORA_PRICING_TAX_RATE" default:"0.10"`
}

func (p PricingConfig) validate() error {
	for env, raw := range map[string]string{
		EnvPricingFreeShippingThreshold: p.FreeShippingThreshold,
		EnvPricingFlatShippingFee:       p.FlatShippingFee,
		EnvPricingTaxRate:               p.TaxRate,
	} {
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		if value.IsNegative() {
			return fmt.Errorf("%s must be non-negative", env)
		}
	}
	return nil
}

type CatalogConfig struct {
	PageSize      int `envconfig:"SHOPORA_CATALOG_PAGE_SIZE" default:"12"`
	FeaturedLimit int `envconfig:"SHOPORA_CATALOG_FEATURED_LIMIT" default:"8"`
	TopLimit      int `envconfig:"SHOPORA_CATALOG_TOP_LIMIT" default:"5"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SHOPORA_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"SHOPORA_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic string   `envconfig:"SHOPORA_KAFKA_ORDERS_TOPIC" default:"shopora.orders"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"SHOPORA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"SHOPORA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"SHOPORA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"SHOPORA_OUTBOX_METRICS_ADDR" default:":9102"`
}

type StripeConfig struct {
	PublishableKey string `envconfig:"SHOPORA_STRIPE_PUBLISHABLE_KEY"`
	SecretKey      string `envconfig:"SHOPORA_STRIPE_SECRET_KEY"`
}

// PaymentsEnabled reports whether a Stripe secret is configured.
func (s StripeConfig) PaymentsEnabled() bool {
	return strings.TrimSpace(s.SecretKey) != ""
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%s is empty and %s not set", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.User)
	if db.Password != "" {
		user = url.UserPassword(db.User, db.Password)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
