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
	FeatureFlags FeatureFlagsConfig
	Sequence     SequenceConfig
	Orders       OrdersConfig
	Idempotency  IdempotencyConfig
	Reconcile    ReconcileConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.UsesSQLite() {
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "file:storefront.db?cache=shared"
		}
	} else if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Sequence.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UsesSQLite reports whether the process should open the embedded sqlite store.
func (c Config) UsesSQLite() bool {
	return c.FeatureFlags.UseSQLite || strings.EqualFold(c.DB.Driver, "sqlite")
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind               string   `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
	CORSAllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the token lifetime for locally minted tokens.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

const (
	SequenceBackendDB    = "db"
	SequenceBackendRedis = "redis"
)

type SequenceConfig struct {
	Backend string `envconfig:"STOREFRONT_SEQUENCE_BACKEND" default:"db"`
	Prefix  string `envconfig:"STOREFRONT_SEQUENCE_PREFIX" default:"ORD"`
}

func (s *SequenceConfig) validate() error {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	switch s.Backend {
	case SequenceBackendDB, SequenceBackendRedis:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvSequenceBackend, SequenceBackendDB, SequenceBackendRedis, s.Backend)
	}
}

const (
	TotalMismatchReject = "reject"
	TotalMismatchLog    = "log"
)

type OrdersConfig struct {
	TotalMismatchPolicy  string        `envconfig:"STOREFRONT_ORDERS_TOTAL_MISMATCH_POLICY" default:"reject"`
	PlaceRateLimit       int           `envconfig:"STOREFRONT_ORDERS_PLACE_RATE_LIMIT" default:"10"`
	PlaceRateLimitWindow time.Duration `envconfig:"STOREFRONT_ORDERS_PLACE_RATE_LIMIT_WINDOW" default:"1m"`
}

func (o *OrdersConfig) validate() error {
	o.TotalMismatchPolicy = strings.ToLower(strings.TrimSpace(o.TotalMismatchPolicy))
	switch o.TotalMismatchPolicy {
	case TotalMismatchReject, TotalMismatchLog:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvTotalMismatchPolicy, TotalMismatchReject, TotalMismatchLog, o.TotalMismatchPolicy)
	}
}

type IdempotencyConfig struct {
	DefaultTTL  time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"24h"`
	CriticalTTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_CRITICAL_TTL" default:"168h"`
	InFlightTTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_INFLIGHT_TTL" default:"30s"`
}

type ReconcileConfig struct {
	Interval time.Duration `envconfig:"STOREFRONT_RECONCILE_INTERVAL" default:"5m"`
	GraceAge time.Duration `envconfig:"STOREFRONT_RECONCILE_GRACE" default:"2m"`
	LockTTL  time.Duration `envconfig:"STOREFRONT_RECONCILE_LOCK_TTL" default:"4m"`
	Batch    int           `envconfig:"STOREFRONT_RECONCILE_BATCH" default:"100"`
}

type OutboxConfig struct {
	Channel        string `envconfig:"STOREFRONT_OUTBOX_CHANNEL" default:"storefront.events"`
	BatchSize      int    `envconfig:"STOREFRONT_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"STOREFRONT_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int    `envconfig:"STOREFRONT_OUTBOX_RETENTION_DAYS" default:"30"`
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
