package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Square       SquareConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "file:splitpay.db?cache=shared"
		}
		cfg.DB.Driver = "sqlite"
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string   `envconfig:"SPLITPAY_APP_ENV" required:"true"`
	Port          string   `envconfig:"SPLITPAY_APP_PORT" required:"true"`
	LogLevel      string   `envconfig:"SPLITPAY_LOG_LEVEL" default:"info"`
	LogWarnStack  bool     `envconfig:"SPLITPAY_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string   `envconfig:"SPLITPAY_PUBLIC_BASE_URL" default:"http://localhost:3000"`
	CORSOrigins   []string `envconfig:"SPLITPAY_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BaseURL returns PublicBaseURL without a trailing slash.
func (a AppConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(a.PublicBaseURL), "/")
}

type ServiceConfig struct {
	Kind string `envconfig:"SPLITPAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SPLITPAY_DB_DSN"`
	Driver string `envconfig:"SPLITPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SPLITPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"SPLITPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SPLITPAY_DB_USER"`
	LegacyPassword string `envconfig:"SPLITPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SPLITPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SPLITPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPLITPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPLITPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPLITPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPLITPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPLITPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SPLITPAY_REDIS_ADDR"`
	Password     string        `envconfig:"SPLITPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPLITPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPLITPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPLITPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPLITPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPLITPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPLITPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SPLITPAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SPLITPAY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"SPLITPAY_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	RequestIdempotencyTTL time.Duration `envconfig:"SPLITPAY_EVENTING_REQUEST_IDEMPOTENCY_TTL" default:"24h"`
}

type RateLimitConfig struct {
	PayerLookupWindow time.Duration `envconfig:"SPLITPAY_RATE_LIMIT_PAYER_LOOKUP_WINDOW" default:"1m"`
	PayerLookupLimit  int           `envconfig:"SPLITPAY_RATE_LIMIT_PAYER_LOOKUP_LIMIT" default:"60"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SPLITPAY_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"SPLITPAY_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	CollectionsTopic string `envconfig:"SPLITPAY_PUBSUB_COLLECTIONS_TOPIC" default:"splitpay-collection-events"`
	// CreateTopics creates missing topics at startup instead of failing.
	// Meant for the emulator and local stacks.
	CreateTopics bool `envconfig:"SPLITPAY_PUBSUB_CREATE_TOPICS" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SPLITPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SPLITPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SPLITPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"SPLITPAY_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"SPLITPAY_CRON_INTERVAL" default:"5m"`
	LockTTL          time.Duration `envconfig:"SPLITPAY_CRON_LOCK_TTL" default:"4m"`
	JobTimeout       time.Duration `envconfig:"SPLITPAY_CRON_JOB_TIMEOUT" default:"1m"`
	DriftRepairLimit int           `envconfig:"SPLITPAY_CRON_DRIFT_REPAIR_LIMIT" default:"200"`
}

type StripeConfig struct {
	APIKey            string        `envconfig:"SPLITPAY_STRIPE_API_KEY"`
	Secret            string        `envconfig:"SPLITPAY_STRIPE_SECRET"`
	Env               string        `envconfig:"SPLITPAY_STRIPE_ENV" default:"test"`
	APIBase           string        `envconfig:"SPLITPAY_STRIPE_API_BASE"`
	Timeout           time.Duration `envconfig:"SPLITPAY_STRIPE_TIMEOUT" default:"20s"`
	MaxNetworkRetries int64         `envconfig:"SPLITPAY_STRIPE_MAX_NETWORK_RETRIES" default:"2"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SquareConfig struct {
	AccessToken   string `envconfig:"SPLITPAY_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"SPLITPAY_SQUARE_WEBHOOK_SECRET"`
	WebhookURL    string `envconfig:"SPLITPAY_SQUARE_WEBHOOK_URL"`
	Env           string `envconfig:"SPLITPAY_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"SPLITPAY_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether Square payments can be settled.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
