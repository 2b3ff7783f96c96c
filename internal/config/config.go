package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yukikurage/multitenant-task-api/internal/constants"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// Token store backends
const (
	TokenStoreDatabase = "database"
	TokenStoreRedis    = "redis"
)

// DB drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port    string
	Env     string
	GinMode string
}

// DBConfig holds database configuration
type DBConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// RedisConfig holds Redis configuration for the token store
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// AuthConfig holds bearer token and password hashing configuration
type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
	TokenStore  string
	BcryptCost  int
}

// TenancyConfig holds multi-tenancy policy switches
type TenancyConfig struct {
	// DeleteOrphanedUsers removes a user account when its last membership is detached.
	DeleteOrphanedUsers bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// OTelConfig holds OpenTelemetry exporter configuration
type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Enabled reports whether tracing should be exported.
func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

type Config struct {
	Server       ServerConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Tenancy      TenancyConfig
	Log          LogConfig
	OTel         OTelConfig
	OpenAIAPIKey string
	OpenAIModel  string
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			Env:     getEnv("APP_ENV", "development"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		DB: DBConfig{
			Driver:          getEnv("DB_DRIVER", DriverMySQL),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "3306"),
			User:            getEnv("DB_USER", "taskuser"),
			Password:        getEnv("DB_PASSWORD", "taskpassword"),
			Name:            getEnv("DB_NAME", "task_management"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenSecret: getEnv("TOKEN_SECRET", "default-secret-key-change-me"),
			TokenTTL:    getEnvAsDuration("TOKEN_TTL", constants.DefaultTokenTTL),
			TokenStore:  getEnv("TOKEN_STORE", TokenStoreDatabase),
			BcryptCost:  getEnvAsInt("BCRYPT_COST", 0),
		},
		Tenancy: TenancyConfig{
			DeleteOrphanedUsers: getEnvAsBool("DELETE_ORPHANED_USERS", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "multitenant-task-api"),
			ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		},
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),
	}
}

// IsProduction reports whether the service runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Server.GinMode == "release" || c.Server.Env == "production"
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Auth.TokenStore {
	case TokenStoreDatabase, TokenStoreRedis:
	default:
		return fmt.Errorf("unsupported TOKEN_STORE %q", c.Auth.TokenStore)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.IsProduction() && (c.Auth.TokenSecret == "" || c.Auth.TokenSecret == "default-secret-key-change-me") {
		return errors.New("TOKEN_SECRET must be set in production")
	}
	return nil
}

// LogFields returns the non-sensitive configuration as zap fields.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("port", c.Server.Port),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.Name),
		zap.String("token_store", c.Auth.TokenStore),
		zap.Duration("token_ttl", c.Auth.TokenTTL),
		zap.Bool("delete_orphaned_users", c.Tenancy.DeleteOrphanedUsers),
		zap.Bool("otel_enabled", c.OTel.Enabled()),
		zap.Bool("ai_enabled", c.OpenAIAPIKey != ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	switch os.Getenv(key) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
