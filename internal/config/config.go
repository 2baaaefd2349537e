// Package config loads the server configuration from environment
// variables into a single Config struct.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage backends for the site documents.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	SiteName string

	// Document storage
	StoreBackend string // "file", "postgres", "sqlite"
	DataDir      string
	SQLitePath   string

	// PostgreSQL connection, used when StoreBackend is "postgres"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache). Empty host disables page caching
	// and keeps sessions in memory.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Media storage. S3 is used when S3Bucket is set, local disk otherwise.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
	MediaDir    string

	// HTTP API
	MaxBodyBytes int64
	CORSOrigins  []string

	// Admin authentication. Empty password hash leaves the admin open.
	AdminUser         string
	AdminPasswordHash string
	AdminTOTPSecret   string

	// APIToken lets non-browser clients write through the API as a
	// bearer token when auth is enabled.
	APIToken string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error for invalid values
// and for unsafe settings in production.
func Load() (*Config, error) {
	cfg := &Config{
		Host:     envOrDefault("APP_HOST", "0.0.0.0"),
		Port:     envOrDefault("APP_PORT", "8080"),
		Env:      envOrDefault("APP_ENV", "development"),
		SiteName: envOrDefault("SITE_NAME", "Atelier"),

		StoreBackend: envOrDefault("STORE_BACKEND", BackendFile),
		DataDir:      envOrDefault("DATA_DIR", "data"),
		SQLitePath:   envOrDefault("SQLITE_PATH", "data/atelier.db"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "atelier"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "atelier"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),
		MediaDir:    envOrDefault("MEDIA_DIR", "data/media"),

		CORSOrigins: splitList(envOrDefault("CORS_ORIGINS", "*")),

		AdminUser:         envOrDefault("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminTOTPSecret:   os.Getenv("ADMIN_TOTP_SECRET"),
		APIToken:          os.Getenv("API_TOKEN"),
	}

	maxBody, err := strconv.ParseInt(envOrDefault("MAX_BODY_BYTES", "52428800"), 10, 64)
	if err != nil || maxBody <= 0 {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be a positive integer")
	}
	cfg.MaxBodyBytes = maxBody

	switch cfg.StoreBackend {
	case BackendFile, BackendPostgres, BackendSQLite:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be one of file, postgres, sqlite (got %q)", cfg.StoreBackend)
	}

	if cfg.S3Bucket != "" && (cfg.S3Endpoint == "" || cfg.S3PublicURL == "") {
		return nil, fmt.Errorf("S3_ENDPOINT and S3_PUBLIC_URL are required when S3_BUCKET is set")
	}

	if cfg.Env == "production" {
		if cfg.StoreBackend == BackendPostgres && cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.AdminPasswordHash == "" {
			return nil, fmt.Errorf("ADMIN_PASSWORD_HASH must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// AuthEnabled reports whether admin pages and API writes need a login.
func (c *Config) AuthEnabled() bool {
	return c.AdminPasswordHash != ""
}

// CacheEnabled reports whether a Valkey server is configured.
func (c *Config) CacheEnabled() bool {
	return c.ValkeyHost != ""
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
