package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
	EnvironmentTest        Environment = "test"
)

type DatabaseDriver string

const (
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

type Config struct {
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Database     DatabaseConfig     `envPrefix:"DB_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	Storage      StorageConfig      `envPrefix:"STORAGE_"`
	Telemetry    TelemetryConfig    `envPrefix:"OTEL_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
	Registration RegistrationConfig `envPrefix:"REGISTRATION_"`
}

type ServerConfig struct {
	Host         string        `env:"HOST" envDefault:"localhost"`
	Port         string        `env:"PORT" envDefault:"3001"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	BodyLimit    int           `env:"BODY_LIMIT" envDefault:"5242880"`
	Environment  Environment   `env:"ENVIRONMENT" envDefault:"development"`
}

func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type DatabaseConfig struct {
	Driver      DatabaseDriver `env:"DRIVER" envDefault:"postgres"`
	Host        string         `env:"HOST" envDefault:"localhost"`
	Port        int            `env:"PORT" envDefault:"5432"`
	User        string         `env:"USER" envDefault:"postgres"`
	Password    string         `env:"PASSWORD" envDefault:"password"`
	Name        string         `env:"NAME" envDefault:"campusflow"`
	SSLMode     string         `env:"SSL_MODE" envDefault:"disable"`
	MaxConns    int32          `env:"MAX_CONNS" envDefault:"10"`
	SQLitePath  string         `env:"SQLITE_PATH" envDefault:"campusflow.db"`
	AutoMigrate bool           `env:"AUTO_MIGRATE" envDefault:"true"`
}

// URL returns the PostgreSQL connection string.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	Issuer    string        `env:"ISSUER" envDefault:"campusflow"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

type StorageConfig struct {
	Type          string `env:"TYPE" envDefault:"local"`
	LocalPath     string `env:"LOCAL_PATH" envDefault:"./uploads"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"/uploads"`
	S3Bucket      string `env:"S3_BUCKET"`
	S3Region      string `env:"S3_REGION"`
	S3Endpoint    string `env:"S3_ENDPOINT"`
	MaxPosterSize int64  `env:"MAX_POSTER_SIZE" envDefault:"5242880"`
}

type TelemetryConfig struct {
	Enabled        bool    `env:"ENABLED" envDefault:"false"`
	ExporterURL    string  `env:"EXPORTER_URL" envDefault:"localhost:4317"`
	ServiceName    string  `env:"SERVICE_NAME" envDefault:"campusflow"`
	ServiceVersion string  `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment    string  `env:"ENVIRONMENT" envDefault:"development"`
	SamplingRatio  float64 `env:"SAMPLING_RATIO" envDefault:"1.0"`
	Insecure       bool    `env:"INSECURE" envDefault:"true"`
}

type RateLimitConfig struct {
	// Per-IP limit applied to the whole API.
	Max        int           `env:"MAX" envDefault:"120"`
	Expiration time.Duration `env:"EXPIRATION" envDefault:"1m"`
	// Per-principal limits backed by Redis.
	RegisterMax   int64         `env:"REGISTER_MAX" envDefault:"10"`
	CheckInMax    int64         `env:"CHECK_IN_MAX" envDefault:"300"`
	PrincipalSpan time.Duration `env:"PRINCIPAL_WINDOW" envDefault:"1m"`
}

type RegistrationConfig struct {
	StrictCapacity bool `env:"STRICT_CAPACITY" envDefault:"true"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment: %w", err)
	}

	switch cfg.Database.Driver {
	case DatabaseDriverPostgres, DatabaseDriverSQLite:
	default:
		return nil, fmt.Errorf("config: unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Server.Environment == EnvironmentProduction && cfg.Auth.JWTSecret == "change-me-in-production" {
		return nil, fmt.Errorf("config: AUTH_JWT_SECRET must be set in production")
	}

	return &cfg, nil
}
