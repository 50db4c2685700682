package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// Codec material, fixed for the process lifetime.
	TripleDESKey []byte // 24 bytes
	TripleDESIV  []byte // 8 bytes

	// OTP expiry; zero disables the check (codes never expire).
	OTPTTL time.Duration

	// Mail transport. Empty SMTPHost disables real delivery.
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	CORSOrigins []string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "4000"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		RedisURL:    os.Getenv("REDIS_URL"),
		SMTPHost:    os.Getenv("SMTP_HOST"),
		SMTPUser:    os.Getenv("MAIL_USER"),
		SMTPPass:    os.Getenv("MAIL_PASS"),
		MailFrom:    getEnv("MAIL_FROM", os.Getenv("MAIL_USER")),
	}

	var err error
	if cfg.TripleDESKey, err = decodeKey("KEY_3DES", 24); err != nil {
		return nil, err
	}
	if cfg.TripleDESIV, err = decodeKey("IV_3DES", 8); err != nil {
		return nil, err
	}

	if port := os.Getenv("SMTP_PORT"); port != "" {
		if cfg.SMTPPort, err = strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
	} else {
		cfg.SMTPPort = 587
	}

	if ttl := os.Getenv("OTP_TTL"); ttl != "" {
		if cfg.OTPTTL, err = time.ParseDuration(ttl); err != nil {
			return nil, fmt.Errorf("invalid OTP_TTL: %w", err)
		}
	}

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	// In production, require the real collaborators
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.SMTPHost == "" {
			panic("SMTP_HOST is required in production")
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// decodeKey reads a base64-encoded key of an exact byte size. Raw values of
// the right length are accepted too, matching older deployments that stored
// the key as plain text.
func decodeKey(name string, size int) ([]byte, error) {
	value := os.Getenv(name)
	if value == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && len(decoded) == size {
		return decoded, nil
	}
	if len(value) == size {
		return []byte(value), nil
	}
	return nil, fmt.Errorf("%s must be %d bytes (raw or base64)", name, size)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
