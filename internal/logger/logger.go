// Package logger owns the process-wide structured logger. Packages log
// through L(); the binary calls Init once at startup. Until then L() is a
// no-op logger, so library code and tests never need to configure logging.
package logger

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LevelDebug = zap.DebugLevel
	LevelInfo  = zap.InfoLevel
	LevelWarn  = zap.WarnLevel
	LevelError = zap.ErrorLevel
)

var (
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Duration = zap.Duration
	Bool     = zap.Bool
	ErrorF   = zap.Error
	Any      = zap.Any
)

type (
	Field = zap.Field
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// Init builds the global logger. level is one of debug, info, warn, error;
// asJSON selects the production JSON encoder over the console encoder.
func Init(level string, asJSON bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("logger: level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	if asJSON {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("logger: build: %w", err)
	}
	Set(l)
	return nil
}

// Set installs l as the global logger. A nil l is ignored.
func Set(l *zap.Logger) {
	if l == nil {
		return
	}
	current.Store(l)
}

// L returns the global logger.
func L() *zap.Logger { return current.Load() }

// Sync flushes buffered entries.
func Sync() { _ = L().Sync() }
