// Package log provides the process-wide structured logger for askdocs.
// It is a thin facade over zap's sugared logger so call sites can use
// package-level Infow/Warnw/Errorw without threading a logger through
// every constructor.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Level is the minimum enabled level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format selects the encoder (json or console).
	Format string `json:"format" mapstructure:"format"`

	// Development enables development mode (DPanic on errors, caller info).
	Development bool `json:"development" mapstructure:"development"`

	// OutputPaths are the log sinks (stdout, stderr, or file paths).
	OutputPaths []string `json:"output-paths" mapstructure:"output-paths"`

	// InitialFields are attached to every log entry.
	InitialFields map[string]any `json:"-" mapstructure:"-"`
}

// NewOptions returns Options with production defaults.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// Validate checks the options.
func (o *Options) Validate() error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(o.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.Level, err)
	}
	if o.Format != "json" && o.Format != "console" {
		return fmt.Errorf("invalid log format %q (want json or console)", o.Format)
	}
	return nil
}

// AddInitialField attaches a field to every entry logged after Init.
func (o *Options) AddInitialField(key string, value any) {
	if o.InitialFields == nil {
		o.InitialFields = make(map[string]any)
	}
	o.InitialFields[key] = value
}

var sugar = zap.NewNop().Sugar()

// Init builds the global logger from opts. Safe to call once at startup;
// callers before Init get a no-op logger.
func Init(opts *Options) error {
	if opts == nil {
		opts = NewOptions()
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = opts.Format
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}
	cfg.InitialFields = opts.InitialFields

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	sugar = l.Sugar()
	return nil
}

// Sync flushes buffered entries. Call on shutdown.
func Sync() error {
	return sugar.Sync()
}

func Debug(args ...any)                 { sugar.Debug(args...) }
func Debugf(format string, args ...any) { sugar.Debugf(format, args...) }
func Debugw(msg string, kv ...any)      { sugar.Debugw(msg, kv...) }
func Info(args ...any)                  { sugar.Info(args...) }
func Infof(format string, args ...any)  { sugar.Infof(format, args...) }
func Infow(msg string, kv ...any)       { sugar.Infow(msg, kv...) }
func Warn(args ...any)                  { sugar.Warn(args...) }
func Warnf(format string, args ...any)  { sugar.Warnf(format, args...) }
func Warnw(msg string, kv ...any)       { sugar.Warnw(msg, kv...) }
func Error(args ...any)                 { sugar.Error(args...) }
func Errorf(format string, args ...any) { sugar.Errorf(format, args...) }
func Errorw(msg string, kv ...any)      { sugar.Errorw(msg, kv...) }
func Fatalf(format string, args ...any) { sugar.Fatalf(format, args...) }
