package config

import (
	"fmt"
	"time"
)

// StoreMode selects the backing store for entity collections.
type StoreMode string

const (
	// StoreLocal keeps everything in a single Redis instance under one local identity.
	StoreLocal StoreMode = "local"
	// StoreRemote uses MongoDB with per-user accounts and change-stream subscriptions.
	StoreRemote StoreMode = "remote"
)

type AuthConfig struct {
	JWTSecretKey string
	TokenTTL     time.Duration
	Issuer       string
}

type ReminderConfig struct {
	CheckInterval time.Duration
	Lookahead     time.Duration
}

// SessionConfig bounds how long a login stays active. TTL matches the token
// lifetime so an expired token never outlives its session or vice versa.
type SessionConfig struct {
	TTL          time.Duration
	ReapInterval time.Duration
}

type BreakerConfig struct {
	MaxRequests         uint32
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Config struct {
	Port           string
	AllowedOrigins []string
	Mode           StoreMode
	Database       DatabaseConfig
	Redis          RedisConfig
	Auth           AuthConfig
	Reminders      ReminderConfig
	Sessions       SessionConfig
	Breaker        BreakerConfig
	Log            LogConfig
}

// Load builds the configuration from the environment. Call godotenv first if a
// .env file should be honored.
func Load() (Config, error) {
	cfg := Config{
		Port:           GetEnvAsString("PORT", "8080"),
		AllowedOrigins: GetEnvAsList("CORS_ALLOWED_ORIGINS"),
		Mode:           StoreMode(GetEnvAsString("STORE_MODE", string(StoreLocal))),
		Database:       LoadDatabaseConfig(),
		Redis:          LoadRedisConfig(),
		Auth: AuthConfig{
			JWTSecretKey: GetEnvAsString("JWT_SECRET_KEY", ""),
			TokenTTL:     GetEnvAsDuration("JWT_EXPIRATION_TIME", 24*time.Hour),
			Issuer:       GetEnvAsString("JWT_ISSUER", "tracker"),
		},
		Reminders: ReminderConfig{
			CheckInterval: GetEnvAsDuration("REMINDER_CHECK_INTERVAL", 60*time.Second),
			Lookahead:     GetEnvAsDuration("REMINDER_LOOKAHEAD", 5*time.Minute),
		},
		Breaker: BreakerConfig{
			MaxRequests:         uint32(GetEnvAsInt("BREAKER_MAX_REQUESTS", 1)),
			Timeout:             GetEnvAsDuration("BREAKER_TIMEOUT", 5*time.Second),
			ConsecutiveFailures: uint32(GetEnvAsInt("BREAKER_CONSECUTIVE_FAILURES", 3)),
		},
		Log: LogConfig{
			Level:      GetEnvAsString("LOG_LEVEL", "info"),
			Format:     GetEnvAsString("LOG_FORMAT", "text"),
			File:       GetEnvAsString("LOG_FILE", ""),
			MaxSizeMB:  GetEnvAsInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: GetEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: GetEnvAsInt("LOG_MAX_AGE_DAYS", 28),
			Compress:   GetEnvAsBool("LOG_COMPRESS", true),
		},
	}

	cfg.Sessions = SessionConfig{
		TTL:          cfg.Auth.TokenTTL,
		ReapInterval: GetEnvAsDuration("SESSION_REAP_INTERVAL", time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case StoreLocal, StoreRemote:
	default:
		return fmt.Errorf("invalid STORE_MODE %q: expected %q or %q", c.Mode, StoreLocal, StoreRemote)
	}
	if c.Auth.JWTSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_TIME must be positive")
	}
	if c.Mode == StoreRemote && c.Database.URI == "" {
		return fmt.Errorf("MONGO_URI is required in %s mode", StoreRemote)
	}
	if c.Reminders.CheckInterval <= 0 || c.Reminders.Lookahead <= 0 {
		return fmt.Errorf("reminder interval and lookahead must be positive")
	}
	if c.Sessions.ReapInterval <= 0 {
		return fmt.Errorf("SESSION_REAP_INTERVAL must be positive")
	}
	return nil
}
