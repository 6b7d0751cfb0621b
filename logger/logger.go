package logger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

/* ========================================================================
 * Logger - structured logging component
 * ========================================================================
 * Provides structured logging with JSON / console encoders and optional
 * rotating file output. Built on Uber Zap + lumberjack.
 * ======================================================================== */

// Config controls logger behavior.
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // empty/"stdout", or a file path

	// Rotation settings, only used when Output is a file path.
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// Logger wraps a zap.Logger.
type Logger struct {
	*zap.Logger
}

var validLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validFormats = map[string]bool{
	"": true, "json": true, "console": true,
}

// ValidateConfig checks level and format values before building a logger.
func ValidateConfig(cfg Config) error {
	if !validLevels[strings.ToLower(cfg.Level)] {
		return fmt.Errorf("invalid log level: %q", cfg.Level)
	}
	if !validFormats[strings.ToLower(cfg.Format)] {
		return fmt.Errorf("invalid log format: %q", cfg.Format)
	}
	return nil
}

// NewLogger builds a logger from config. Invalid level strings fall back
// to info rather than failing startup.
func NewLogger(cfg Config) *Logger {
	level := zap.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level = zap.InfoLevel
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var writer zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stdout":
		writer = zapcore.AddSync(os.Stdout)
	default:
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 5
		}
		maxAge := cfg.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 30
		}
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   true,
		})
	}

	core := zapcore.NewCore(
		encoder,
		writer,
		level,
	)

	logger := zap.New(core, zap.AddCaller())
	return &Logger{Logger: logger}
}

// NewNop returns a logger that discards everything. Useful in tests and as
// a safe default for optional dependencies.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithContext returns the underlying zap logger enriched with request
// metadata from ctx when present.
func (l *Logger) WithContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return l.Logger
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok && rid != "" {
		return l.Logger.With(zap.String("request_id", rid))
	}
	return l.Logger
}

type requestIDKey struct{}

// WithRequestID stores a request id that WithContext will attach to log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}
