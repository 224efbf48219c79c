package config

import (
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all configuration for the service.
type Config struct {
	ServiceName            string `mapstructure:"SERVICE_NAME"`
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	MongoURI               string `mapstructure:"MONGO_URI"`
	MongoDatabase          string `mapstructure:"MONGO_DATABASE"`
	NATSURL                string `mapstructure:"NATS_URL"`
	RedisAddr              string `mapstructure:"REDIS_ADDR"`
	RedisPassword          string `mapstructure:"REDIS_PASSWORD"`
	RedisDB                int    `mapstructure:"REDIS_DB"`
	StoreCacheTTLSeconds   int    `mapstructure:"STORE_CACHE_TTL_SECONDS"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`
	PrometheusMetricsPort  string `mapstructure:"PROMETHEUS_METRICS_PORT"`
	LogLevel               string `mapstructure:"LOG_LEVEL"`
	LogFormat              string `mapstructure:"LOG_FORMAT"`
	OTExporterOTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig(appLogger *logger.Logger) (*Config, error) {
	viper.SetDefault("SERVICE_NAME", "catalog-service")
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "clothing_store_db")
	viper.SetDefault("NATS_URL", "nats://localhost:4222")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("STORE_CACHE_TTL_SECONDS", 60)
	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("PROMETHEUS_METRICS_PORT", "9094")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		appLogger.Error("Failed to unmarshal configuration", zap.Error(err))
		return nil, err
	}

	if cfg.JWTSecret == "change-me-in-production" || cfg.JWTSecret == "" {
		appLogger.Warn("JWT_SECRET is set to its default insecure value or is empty; set a strong secret in the environment")
	}
	if cfg.MongoURI == "" {
		appLogger.Fatal("MONGO_URI is not set. This is required.")
	}
	if cfg.MongoDatabase == "" {
		appLogger.Fatal("MONGO_DATABASE is not set. This is required.")
	}

	appLogger.Debug("Configuration loaded",
		zap.String("service_name", cfg.ServiceName),
		zap.String("http_port", cfg.HTTPPort),
		zap.Bool("mongo_uri_present", cfg.MongoURI != ""),
		zap.String("mongo_database", cfg.MongoDatabase),
		zap.String("nats_url", cfg.NATSURL),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("prometheus_port", cfg.PrometheusMetricsPort),
		zap.String("log_level", cfg.LogLevel),
	)

	return &cfg, nil
}
