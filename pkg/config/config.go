package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MEDCONSULT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverSQLite = "sqlite"

	EnvAppEnv            = "MEDCONSULT_APP_ENV"
	EnvPort              = "MEDCONSULT_APP_PORT"
	EnvDBDSN             = "MEDCONSULT_DB_DSN"
	EnvDBHost            = "MEDCONSULT_DB_HOST"
	EnvDBUser            = "MEDCONSULT_DB_USER"
	EnvDBName            = "MEDCONSULT_DB_NAME"
	EnvRedisURL          = "MEDCONSULT_REDIS_URL"
	EnvJWTSecret         = "MEDCONSULT_JWT_SECRET"
	EnvJWTIssuer         = "MEDCONSULT_JWT_ISSUER"
	EnvReconcilerSecret  = "MEDCONSULT_RECONCILER_SECRET"
	EnvStorageBasePath   = "MEDCONSULT_STORAGE_BASE_PATH"
	EnvSMTPHost          = "MEDCONSULT_SMTP_HOST"
	EnvReconcilerCadence = "MEDCONSULT_RECONCILER_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Reconciler   ReconcilerConfig
	Storage      StorageConfig
	SMTP         SMTPConfig
	Idempotency  IdempotencyConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MEDCONSULT_APP_ENV" required:"true"`
	Port         string `envconfig:"MEDCONSULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEDCONSULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEDCONSULT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"MEDCONSULT_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEDCONSULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MEDCONSULT_DB_DSN"`
	Driver string `envconfig:"MEDCONSULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEDCONSULT_DB_HOST"`
	LegacyPort     int    `envconfig:"MEDCONSULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEDCONSULT_DB_USER"`
	LegacyPassword string `envconfig:"MEDCONSULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEDCONSULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEDCONSULT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"MEDCONSULT_SQLITE_PATH" default:"medconsult.db"`

	MaxOpenConns    int           `envconfig:"MEDCONSULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEDCONSULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEDCONSULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEDCONSULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery is the duration past which statements are logged at warn level.
	SlowQuery time.Duration `envconfig:"MEDCONSULT_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEDCONSULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEDCONSULT_REDIS_ADDR"`
	Password     string        `envconfig:"MEDCONSULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEDCONSULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEDCONSULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEDCONSULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEDCONSULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEDCONSULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEDCONSULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only covers verification; tokens are issued by the account service.
type JWTConfig struct {
	Secret string `envconfig:"MEDCONSULT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"MEDCONSULT_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MEDCONSULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MEDCONSULT_AUTO_MIGRATE" default:"false"`
}

type ReconcilerConfig struct {
	Secret           string        `envconfig:"MEDCONSULT_RECONCILER_SECRET"`
	Interval         time.Duration `envconfig:"MEDCONSULT_RECONCILER_INTERVAL" default:"1h"`
	LockTTL          time.Duration `envconfig:"MEDCONSULT_RECONCILER_LOCK_TTL" default:"10m"`
	PendingReviewTTL time.Duration `envconfig:"MEDCONSULT_RECONCILER_PENDING_REVIEW_TTL" default:"168h"`
	PriceProposedTTL time.Duration `envconfig:"MEDCONSULT_RECONCILER_PRICE_PROPOSED_TTL" default:"120h"`
	PaymentTTL       time.Duration `envconfig:"MEDCONSULT_RECONCILER_PAYMENT_PENDING_TTL" default:"72h"`
	ReminderWindow   time.Duration `envconfig:"MEDCONSULT_RECONCILER_REMINDER_WINDOW" default:"24h"`
}

const (
	StorageBackendLocal = "local"
	StorageBackendGCS   = "gcs"
)

type StorageConfig struct {
	Backend     string `envconfig:"MEDCONSULT_STORAGE_BACKEND" default:"local"`
	BasePath    string `envconfig:"MEDCONSULT_STORAGE_BASE_PATH" default:"./uploads"`
	MaxUploadMB int    `envconfig:"MEDCONSULT_MAX_UPLOAD_MB" default:"25"`

	GCSBucket string `envconfig:"MEDCONSULT_GCS_BUCKET"`
	// GCSCredentialsJSON takes precedence over GCSCredentialsFile; with neither
	// set the metadata server supplies tokens.
	GCSCredentialsJSON string `envconfig:"MEDCONSULT_GCS_CREDENTIALS_JSON"`
	GCSCredentialsFile string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// UseGCS reports whether blobs go to Cloud Storage instead of local disk.
func (s StorageConfig) UseGCS() bool {
	return strings.EqualFold(strings.TrimSpace(s.Backend), StorageBackendGCS)
}

// MaxUploadBytes converts the configured upload ceiling into bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 25 << 20
	}
	return int64(s.MaxUploadMB) << 20
}

type SMTPConfig struct {
	Host      string `envconfig:"MEDCONSULT_SMTP_HOST"`
	Port      int    `envconfig:"MEDCONSULT_SMTP_PORT" default:"587"`
	User      string `envconfig:"MEDCONSULT_SMTP_USER"`
	Password  string `envconfig:"MEDCONSULT_SMTP_PASSWORD"`
	FromEmail string `envconfig:"MEDCONSULT_SMTP_FROM_EMAIL" default:"no-reply@medconsult.lr"`
	// OpsEmail receives staff-facing notifications such as uploaded receipts.
	OpsEmail string `envconfig:"MEDCONSULT_SMTP_OPS_EMAIL"`
}

// Enabled reports whether outbound e-mail is configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"MEDCONSULT_IDEMPOTENCY_TTL" default:"24h"`
}

type HTTPConfig struct {
	AllowedOrigins   []string      `envconfig:"MEDCONSULT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	UploadRateLimit  int64         `envconfig:"MEDCONSULT_UPLOAD_RATE_LIMIT" default:"20"`
	UploadRateWindow time.Duration `envconfig:"MEDCONSULT_UPLOAD_RATE_WINDOW" default:"1m"`
	ReadTimeout      time.Duration `envconfig:"MEDCONSULT_HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout     time.Duration `envconfig:"MEDCONSULT_HTTP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout  time.Duration `envconfig:"MEDCONSULT_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
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
