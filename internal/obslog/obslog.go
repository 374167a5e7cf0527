// Package obslog owns the process-wide zap logger.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger = zap.NewNop()
)

// L returns the process logger. It is a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger }

// Or returns l, or the global logger when l is nil.
func Or(l *zap.Logger) *zap.Logger {
	if l == nil {
		return globalLogger
	}
	return l
}

// Replace swaps the global logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) func() {
	prev := globalLogger
	globalLogger = l
	return func() { globalLogger = prev }
}

// Options mirrors the LOG_* environment variables.
type Options struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Console bool   `env:"LOG_TO_CONSOLE" envDefault:"true"`
	ToFile  bool   `env:"LOG_TO_FILE" envDefault:"true"`
	Caller  bool   `env:"LOG_CALLER" envDefault:"false"`
	Format  string `env:"LOG_FORMAT" envDefault:"legacy"`
	File    string `env:"LOG_FILE" envDefault:"logs/ajedrez.log"`
}

// InitFromEnv builds the global logger from LOG_* variables.
func InitFromEnv() error {
	var opts Options
	if err := env.Parse(&opts); err != nil {
		return fmt.Errorf("parse log env: %w", err)
	}
	return Init(opts)
}

// Init builds the global logger. Console and file outputs can run together.
func Init(opts Options) error {
	level := parseLevel(opts.Level)
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "legacy" && format != "json" && format != "console" {
		format = "legacy"
	}
	filePath := strings.TrimSpace(opts.File)
	if filePath == "" {
		filePath = filepath.Join("logs", "ajedrez.log")
	}
	var cores []zapcore.Core

	if opts.Console {
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(os.Stdout), level))
	}

	if opts.ToFile {
		if dir := filepath.Dir(filePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(f), level))
	}

	if len(cores) == 0 {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if opts.Caller || format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	logger = logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	globalLogger = logger
	return nil
}

func encoderFor(format string) zapcore.Encoder {
	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig(format))
	}
	return zapcore.NewConsoleEncoder(encoderConfig(format))
}

// encoderConfig: legacy is "2006-01-02 15:04:05 | INFO | caller | msg",
// console and json use ISO8601 times, json with lowercase levels.
func encoderConfig(format string) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	switch format {
	case "json":
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	case "console":
	default:
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.ConsoleSeparator = " | "
	}
	return cfg
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
