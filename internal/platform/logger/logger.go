package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger so packages can carry a named, structured logger
// without depending on zap's construction details.
type Logger struct {
	*zap.Logger
	config *Config
}

var (
	globalLogger *Logger
	once         sync.Once
)

// NewLogger initializes the process-wide logger from environment
// configuration. The first call wins; later calls return the same instance.
func NewLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()

		var zapConfig zap.Config
		if cfg.Level == "debug" {
			zapConfig = zap.NewDevelopmentConfig()
			zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			zapConfig = zap.NewProductionConfig()
			zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}

		if err := zapConfig.Level.UnmarshalText([]byte(cfg.Level)); err != nil {
			fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL %q, defaulting to info: %v\n", cfg.Level, err)
			zapConfig.Level.SetLevel(zapcore.InfoLevel)
		}

		if strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "text") {
			zapConfig.Encoding = "console"
			zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			zapConfig.Encoding = "json"
		}

		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}

		l, err := zapConfig.Build(zap.AddCallerSkip(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build configured logger, falling back to production defaults: %v\n", err)
			l, _ = zap.NewProduction()
		}

		globalLogger = &Logger{Logger: l, config: cfg}
	})
	return globalLogger
}

// Named adds a path segment to the logger's name for contextual logging.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), config: l.config}
}

// With adds structured context to the logger.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), config: l.config}
}
