package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger flavour and level.
type Options struct {
	Production bool
	Level      string
}

// New builds a zap logger. Production mode emits JSON, development mode a
// human-readable console format.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level.SetLevel(level)

	return cfg.Build()
}

// Init builds the process logger and installs it as zap's global logger.
func Init(opts Options) (*zap.Logger, error) {
	l, err := New(opts)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

// Get returns the process logger. It is a no-op logger until Init runs.
func Get() *zap.Logger {
	return zap.L()
}
