package config

import (
	"os"
	"strconv"
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

func defaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Stream: "envista_readings",
	}
}

// redisFromEnv applies REDIS_* overrides to base. An unparsable REDIS_DB keeps base.DB.
func redisFromEnv(base RedisConfig) RedisConfig {
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			base.DB = parsed
		}
	}

	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", base.Addr),
		Password: getEnv("REDIS_PASSWORD", base.Password),
		DB:       base.DB,
		Stream:   getEnv("REDIS_STREAM", base.Stream),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
