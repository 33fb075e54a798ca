package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "MARKETPAY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MARKETPAY_DB_DSN"
	EnvDBHost = "MARKETPAY_DB_HOST"
	EnvDBUser = "MARKETPAY_DB_USER"
	EnvDBName = "MARKETPAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Payments     PaymentsConfig
	Gateway      GatewayConfig
	Admin        AdminConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETPAY_DB_DSN"`
	Driver string `envconfig:"MARKETPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKETPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETPAY_DB_USER"`
	LegacyPassword string `envconfig:"MARKETPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKETPAY_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARKETPAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARKETPAY_AUTO_MIGRATE" default:"false"`
}

type PaymentsConfig struct {
	// ThreeDSThreshold is the amount above which card payments must complete
	// a 3-D Secure challenge before capture.
	ThreeDSThreshold    decimal.Decimal `envconfig:"MARKETPAY_PAYMENTS_THREEDS_THRESHOLD" default:"500"`
	DefaultCurrency     string          `envconfig:"MARKETPAY_PAYMENTS_DEFAULT_CURRENCY" default:"USD"`
	AllowSimulation     bool            `envconfig:"MARKETPAY_PAYMENTS_ALLOW_SIMULATION" default:"true"`
	WebhookEventTTL     time.Duration   `envconfig:"MARKETPAY_PAYMENTS_WEBHOOK_EVENT_TTL" default:"720h"`
	ManualProviderLabel string          `envconfig:"MARKETPAY_PAYMENTS_MANUAL_PROVIDER" default:"MANUAL"`
}

type GatewayConfig struct {
	Provider      string        `envconfig:"MARKETPAY_GATEWAY_PROVIDER" default:"sandbox"`
	WebhookSecret string        `envconfig:"MARKETPAY_GATEWAY_WEBHOOK_SECRET" default:"sandbox-secret"`
	CallTimeout   time.Duration `envconfig:"MARKETPAY_GATEWAY_CALL_TIMEOUT" default:"10s"`
}

type AdminConfig struct {
	APIKey string `envconfig:"MARKETPAY_ADMIN_API_KEY"`
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
