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
	JWT          JWTConfig
	Sell         SellConfig
	Pickup       PickupConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Sell.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RESELLR_APP_ENV" required:"true"`
	Port         string `envconfig:"RESELLR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RESELLR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESELLR_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"RESELLR_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"RESELLR_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"RESELLR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RESELLR_DB_DSN"`
	Driver string `envconfig:"RESELLR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RESELLR_DB_HOST"`
	LegacyPort     int    `envconfig:"RESELLR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RESELLR_DB_USER"`
	LegacyPassword string `envconfig:"RESELLR_DB_PASSWORD"`
	LegacyName     string `envconfig:"RESELLR_DB_NAME"`
	LegacySSLMode  string `envconfig:"RESELLR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RESELLR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RESELLR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RESELLR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESELLR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"RESELLR_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESELLR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RESELLR_REDIS_ADDR"`
	Password     string        `envconfig:"RESELLR_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESELLR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESELLR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RESELLR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RESELLR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESELLR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESELLR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RESELLR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RESELLR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RESELLR_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SellConfig carries the sell flow constants that used to be literals.
type SellConfig struct {
	SessionTTL    time.Duration `envconfig:"RESELLR_SELL_SESSION_TTL" default:"30m"`
	SessionSecret string        `envconfig:"RESELLR_SELL_SESSION_SECRET" required:"true"`
	ProcessingFee int64         `envconfig:"RESELLR_SELL_PROCESSING_FEE" default:"49"`
	OrderPrefix   string        `envconfig:"RESELLR_SELL_ORDER_PREFIX" default:"SELL"`
}

func (s SellConfig) validate() error {
	if s.SessionTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvSellSessionTTL)
	}
	if len(s.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("%s must be at least %d characters", EnvSellSessionSecret, minSessionSecretLen)
	}
	if s.ProcessingFee < 0 {
		return fmt.Errorf("%s must not be negative", EnvSellProcessingFee)
	}
	return nil
}

type PickupConfig struct {
	CodeTTL     time.Duration `envconfig:"RESELLR_PICKUP_CODE_TTL" default:"15m"`
	MaxAttempts int           `envconfig:"RESELLR_PICKUP_CODE_MAX_ATTEMPTS" default:"5"`

	ArgonMemoryKB    int `envconfig:"RESELLR_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime        int `envconfig:"RESELLR_ARGON_TIME" default:"2"`
	ArgonParallelism int `envconfig:"RESELLR_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int `envconfig:"RESELLR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RESELLR_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	SessionCreateWindow    time.Duration `envconfig:"RESELLR_RATE_LIMIT_SESSION_WINDOW" default:"1m"`
	SessionCreateUserLimit int           `envconfig:"RESELLR_RATE_LIMIT_SESSION_USER_LIMIT" default:"10"`
	SessionCreateIPLimit   int           `envconfig:"RESELLR_RATE_LIMIT_SESSION_IP_LIMIT" default:"60"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RESELLR_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"RESELLR_CRON_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RESELLR_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"RESELLR_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RESELLR_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"RESELLR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RESELLR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SellEventsTopic string `envconfig:"RESELLR_PUBSUB_SELL_EVENTS_TOPIC" default:"resellr-sell-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RESELLR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RESELLR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RESELLR_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"RESELLR_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetention   int `envconfig:"RESELLR_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
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
