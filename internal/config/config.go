package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Gateway    GatewayConfig
	Escalation EscalationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	SuperAdminUsername    string
	SuperAdminPassword    string
	SuperAdminPhone       string
}

// GatewayConfig points at the external WhatsApp messaging gateway.
type GatewayConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// EscalationConfig drives the overdue-complaint sweep.
type EscalationConfig struct {
	SweepIntervalMinutes int
	L1ContactPhone       string
	L2ContactPhone       string
	L3ContactPhone       string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			SuperAdminUsername:    getEnv("AUTH_SUPERADMIN_USERNAME", "superadmin"),
			SuperAdminPassword:    os.Getenv("AUTH_SUPERADMIN_PASSWORD"),
			SuperAdminPhone:       os.Getenv("AUTH_SUPERADMIN_PHONE"),
		},
		Gateway: GatewayConfig{
			BaseURL:        getEnv("GATEWAY_BASE_URL", ""),
			APIKey:         os.Getenv("GATEWAY_API_KEY"),
			TimeoutSeconds: getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 10),
		},
		Escalation: EscalationConfig{
			SweepIntervalMinutes: getEnvAsInt("ESCALATION_SWEEP_INTERVAL_MINUTES", 60),
			L1ContactPhone:       os.Getenv("ESCALATION_L1_PHONE"),
			L2ContactPhone:       os.Getenv("ESCALATION_L2_PHONE"),
			L3ContactPhone:       os.Getenv("ESCALATION_L3_PHONE"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SweepInterval returns the escalation sweep period.
func (e EscalationConfig) SweepInterval() time.Duration {
	if e.SweepIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(e.SweepIntervalMinutes) * time.Minute
}

// Timeout returns the gateway request timeout.
func (g GatewayConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
