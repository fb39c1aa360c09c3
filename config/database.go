package config

import (
	"time"
)

type DatabaseConfig struct {
	URI             string
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	DatabaseName    string
	RetryWrites     bool
}

type RedisConfig struct {
	URL       string
	KeyPrefix string
}

func LoadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URI:             GetEnvAsString("MONGO_URI", ""),
		MaxPoolSize:     GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 100),
		MinPoolSize:     GetEnvAsUint64("MONGO_MIN_POOL_SIZE", 10),
		MaxConnIdleTime: time.Duration(GetEnvAsInt("MONGO_MAX_CONN_IDLE_TIME", 60)) * time.Second,
		DatabaseName:    GetEnvAsString("MONGO_DB", "tracker"),
		RetryWrites:     GetEnvAsBool("MONGO_RETRY_WRITES", true),
	}
}

func LoadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:       GetEnvAsString("REDIS_URL", "redis://localhost:6379/0"),
		KeyPrefix: GetEnvAsString("REDIS_KEY_PREFIX", "projectManager"),
	}
}
