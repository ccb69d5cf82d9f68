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
	CRM          CRMConfig
	Inventory    InventoryConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"MEMBERSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"MEMBERSTOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEMBERSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEMBERSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEMBERSTOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MEMBERSTOCK_DB_DSN"`
	Driver string `envconfig:"MEMBERSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEMBERSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"MEMBERSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEMBERSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"MEMBERSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEMBERSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEMBERSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEMBERSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEMBERSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEMBERSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEMBERSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEMBERSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEMBERSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"MEMBERSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEMBERSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEMBERSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEMBERSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEMBERSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEMBERSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEMBERSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies bearer tokens minted by the host CRM for this service.
type JWTConfig struct {
	Secret            string `envconfig:"MEMBERSTOCK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEMBERSTOCK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MEMBERSTOCK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MEMBERSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MEMBERSTOCK_AUTO_MIGRATE" default:"false"`
}

// CRMConfig points at the host CRM that owns contacts, memberships and
// contributions. The webhook secret authenticates hook deliveries.
type CRMConfig struct {
	BaseURL           string        `envconfig:"MEMBERSTOCK_CRM_BASE_URL"`
	WebhookSecret     string        `envconfig:"MEMBERSTOCK_CRM_WEBHOOK_SECRET"`
	AllowedOrigin     string        `envconfig:"MEMBERSTOCK_CRM_ALLOWED_ORIGIN"`
	WebhookRateWindow time.Duration `envconfig:"MEMBERSTOCK_CRM_WEBHOOK_RATE_WINDOW" default:"1m"`
	WebhookRateLimit  int           `envconfig:"MEMBERSTOCK_CRM_WEBHOOK_RATE_LIMIT" default:"120"`
}

type InventoryConfig struct {
	WarrantyMonths        int           `envconfig:"MEMBERSTOCK_WARRANTY_MONTHS" default:"12"`
	ExpiringWarrantyDays  int           `envconfig:"MEMBERSTOCK_EXPIRING_WARRANTY_DAYS" default:"30"`
	IdempotencyRecordTTL  time.Duration `envconfig:"MEMBERSTOCK_IDEMPOTENCY_RECORD_TTL" default:"24h"`
	AssignClaimMaxRetries int           `envconfig:"MEMBERSTOCK_ASSIGN_CLAIM_MAX_RETRIES" default:"5"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MEMBERSTOCK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MEMBERSTOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MEMBERSTOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	HookTopic        string `envconfig:"MEMBERSTOCK_PUBSUB_HOOK_TOPIC" default:"ms-crm-hook-events"`
	HookSubscription string `envconfig:"MEMBERSTOCK_PUBSUB_HOOK_SUBSCRIPTION"`
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
