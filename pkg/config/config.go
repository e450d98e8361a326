package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

// Config is the full process configuration, one struct per concern.
type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Automation    AutomationConfig
	FeatureFlags  FeatureFlagsConfig
}

// Load reads the PERFUMERY_* environment. Postgres settings are only
// required when the SQLite flag is off.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		dsn, err := cfg.DB.resolveDSN()
		if err != nil {
			return nil, err
		}
		cfg.DB.DSN = dsn
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// minProdSecretLen guards against shipping the sample HS256 secret.
const minProdSecretLen = 32

func (c *Config) validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.JWT.ExpirationMinutes > 0, "%s must be positive", EnvJWTExpMins)
	check(c.JWT.RefreshTokenTTLMinutes > 0, "%s must be positive", EnvRefreshTokenTTLMi)
	check(c.Password.MinLength > 0, "%s must be positive", EnvPasswordMinLen)
	check(c.RateLimit.RequestsPerSecond >= 0, "%s must not be negative", EnvRateLimitRPS)
	if c.App.IsProd() {
		check(len(c.JWT.Secret) >= minProdSecretLen, "%s must be at least %d bytes in production", EnvJWTSecret, minProdSecretLen)
		check(!c.FeatureFlags.AutoMigrate, "%s is not allowed in production", EnvAutoMigrate)
	}
	if c.FeatureFlags.UseSQLite {
		check(strings.TrimSpace(c.DB.SQLitePath) != "", "%s is required with %s", EnvSQLitePath, EnvUseSQLite)
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"PERFUMERY_APP_ENV" required:"true"`
	Port         string `envconfig:"PERFUMERY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PERFUMERY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PERFUMERY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PERFUMERY_LOG_WARN_STACK" default:"false"`
}

// IsDev enables dev-only conveniences such as embedded migrations on boot.
func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN string `envconfig:"PERFUMERY_DB_DSN"`

	Host     string `envconfig:"PERFUMERY_DB_HOST"`
	Port     int    `envconfig:"PERFUMERY_DB_PORT" default:"5432"`
	User     string `envconfig:"PERFUMERY_DB_USER"`
	Password string `envconfig:"PERFUMERY_DB_PASSWORD"`
	Name     string `envconfig:"PERFUMERY_DB_NAME"`
	SSLMode  string `envconfig:"PERFUMERY_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"PERFUMERY_SQLITE_PATH" default:"perfumery.db"`

	MaxOpenConns    int           `envconfig:"PERFUMERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PERFUMERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PERFUMERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PERFUMERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PERFUMERY_REDIS_URL"`
	Address      string        `envconfig:"PERFUMERY_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"PERFUMERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PERFUMERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PERFUMERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PERFUMERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PERFUMERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PERFUMERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PERFUMERY_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"PERFUMERY_REDIS_KEY_PREFIX" default:"perfumery"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PERFUMERY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PERFUMERY_JWT_ISSUER" default:"perfumery"`
	ExpirationMinutes      int    `envconfig:"PERFUMERY_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"PERFUMERY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PERFUMERY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PERFUMERY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PERFUMERY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PERFUMERY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PERFUMERY_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"PERFUMERY_PASSWORD_MIN_LENGTH" default:"8"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"PERFUMERY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"PERFUMERY_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"PERFUMERY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"PERFUMERY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"PERFUMERY_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"PERFUMERY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig drives the in-process token bucket applied to /api.
type RateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"PERFUMERY_RATE_LIMIT_RPS" default:"20"`
	Burst             int           `envconfig:"PERFUMERY_RATE_LIMIT_BURST" default:"40"`
	IdleTTL           time.Duration `envconfig:"PERFUMERY_RATE_LIMIT_IDLE_TTL" default:"10m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PERFUMERY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	MaxAgeSeconds  int      `envconfig:"PERFUMERY_CORS_MAX_AGE" default:"300"`
}

// AutomationConfig holds the static key accepted on automation stock routes.
type AutomationConfig struct {
	APIKey string `envconfig:"PERFUMERY_AUTOMATION_API_KEY"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PERFUMERY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PERFUMERY_AUTO_MIGRATE" default:"false"`
}

// resolveDSN prefers an explicit DSN and otherwise assembles a postgres URL
// from the split host/user/name settings.
func (db DBConfig) resolveDSN() (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}
	parts := map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name}
	var missing []string
	for _, env := range splitDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	return u.String(), nil
}
