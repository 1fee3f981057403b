package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mlomp/mairie-backend/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Environment is "development" or "production"; development echoes
	// internal error detail in responses
	Environment string

	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Media         MediaConfig
	OIDC          OIDCConfig
	Mail          MailConfig
	Observability ObservabilityConfig

	// CORSOrigins lists the allowed browser origins
	CORSOrigins []string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
}

// AuthConfig holds token-signing configuration
type AuthConfig struct {
	JWTSecret string
}

// MediaConfig holds the S3-compatible media store configuration
type MediaConfig struct {
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// PublicBaseURL overrides the URL prefix of stored objects (CDN)
	PublicBaseURL string

	// MaxUploadBytes caps in-memory buffering of a single upload
	MaxUploadBytes int64
	// UploadTimeout bounds the round-trip to the media store
	UploadTimeout time.Duration
}

// OIDCConfig holds federated-login (Google) configuration
type OIDCConfig struct {
	Enabled      bool
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// MailConfig holds the outbound mail settings for reset-token delivery
type MailConfig struct {
	FromAddress  string
	ResetLinkURL string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("MAIRIE_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("MAIRIE_HOST", "0.0.0.0"),
			Port:            getEnv("MAIRIE_PORT", "8001"),
			ReadTimeout:     getEnvDuration("MAIRIE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("MAIRIE_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("MAIRIE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("MAIRIE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:         getEnv("MAIRIE_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("MAIRIE_POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("MAIRIE_POSTGRES_MIN_CONNS", 2),
			Timeout:     getEnvDuration("MAIRIE_POSTGRES_TIMEOUT", 10*time.Second),
			MaxLifetime: getEnvDuration("MAIRIE_POSTGRES_MAX_LIFETIME", time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("MAIRIE_JWT_SECRET", ""),
		},
		Media: MediaConfig{
			S3Endpoint:     getEnv("MAIRIE_S3_ENDPOINT", ""),
			S3Region:       getEnv("MAIRIE_S3_REGION", "us-east-1"),
			S3Bucket:       getEnv("MAIRIE_S3_BUCKET", "mairie-media"),
			S3AccessKey:    getEnv("MAIRIE_S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("MAIRIE_S3_SECRET_KEY", ""),
			S3UsePathStyle: getEnvBool("MAIRIE_S3_USE_PATH_STYLE", false),
			PublicBaseURL:  getEnv("MAIRIE_MEDIA_PUBLIC_URL", ""),
			MaxUploadBytes: getEnvInt64("MAIRIE_MAX_UPLOAD_BYTES", 20*1024*1024),
			UploadTimeout:  getEnvDuration("MAIRIE_UPLOAD_TIMEOUT", 30*time.Second),
		},
		OIDC: OIDCConfig{
			Enabled:      getEnvBool("MAIRIE_OIDC_ENABLED", false),
			IssuerURL:    getEnv("MAIRIE_OIDC_ISSUER", "https://accounts.google.com"),
			ClientID:     getEnv("MAIRIE_OIDC_CLIENT_ID", ""),
			ClientSecret: getEnv("MAIRIE_OIDC_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("MAIRIE_OIDC_REDIRECT_URL", ""),
		},
		Mail: MailConfig{
			FromAddress:  getEnv("MAIRIE_MAIL_FROM", "no-reply@mairie.local"),
			ResetLinkURL: getEnv("MAIRIE_RESET_LINK_URL", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("MAIRIE_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("MAIRIE_METRICS_ENABLED", true),
		},
		CORSOrigins: getEnvList("MAIRIE_CORS_ORIGINS", []string{"http://localhost:5173"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT signing secret is required")
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.OIDC.Enabled {
		if c.OIDC.ClientID == "" || c.OIDC.ClientSecret == "" || c.OIDC.RedirectURL == "" {
			return fmt.Errorf("OIDC client id, secret, and redirect URL are required when OIDC is enabled")
		}
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment != "production"
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
