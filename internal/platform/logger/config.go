package logger

import (
	"os"
	"strings"
)

// Config holds the logger's environment-driven settings.
type Config struct {
	Level  string
	Format string
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// DefaultConfig reads LOG_LEVEL and LOG_FORMAT from the environment.
func DefaultConfig() *Config {
	return &Config{
		Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
}
