package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend names the storage engine selected from the environment
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	Port               string
	GoEnv              string
	SQLitePath         string
	FallbackFile       string
	StaticDir          string
	LogLevel           string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	Auth0Domain        string
	Auth0Audience      string
	AdminScope         string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// Hosted deployments set variables directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	return FromEnv()
}

// FromEnv builds and validates a Config from the current process environment
// without touching any .env file
func FromEnv() (*Config, error) {
	maxOpen, err := getEnvInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getEnvInt("DB_MAX_IDLE_CONNS", 25)
	if err != nil {
		return nil, err
	}
	lifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", os.Getenv("POSTGRES_URL")),
		Port:               getEnv("PORT", "3000"),
		GoEnv:              getEnv("GO_ENV", "development"),
		SQLitePath:         getEnv("SQLITE_PATH", "submissions.db"),
		FallbackFile:       getEnv("FALLBACK_FILE", "submissions.json"),
		StaticDir:          getEnv("STATIC_DIR", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBMaxOpenConns:     maxOpen,
		DBMaxIdleConns:     maxIdle,
		DBConnMaxLifetime:  lifetime,
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		AdminScope:         getEnv("ADMIN_SCOPE", "manage:submissions"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 0 and 65535, got %q", c.Port)
	}
	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes must not be negative")
	}
	if (c.Auth0Domain == "") != (c.Auth0Audience == "") {
		return fmt.Errorf("AUTH0_DOMAIN and AUTH0_AUDIENCE must be set together")
	}
	if c.FallbackFile == "" {
		return fmt.Errorf("FALLBACK_FILE must not be empty")
	}
	return nil
}

// Backend selects the storage engine: a connection string means PostgreSQL,
// its absence means the embedded SQLite file
func (c *Config) Backend() Backend {
	if c.DatabaseURL != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// AuthEnabled reports whether admin routes are protected by Auth0
func (c *Config) AuthEnabled() bool {
	return c.Auth0Domain != "" && c.Auth0Audience != ""
}

// ArchiveEnabled reports whether submission archives can be exported to S3
func (c *Config) ArchiveEnabled() bool {
	return c.AWSS3Bucket != ""
}

// ListenAddr returns the address the HTTP server binds to
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
