// Package logging builds the zap loggers used for diagnostics. User-facing
// prompts and results go through pkg/ui, never through the logger.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"thoreinstein.com/prc/pkg/config"
	prcerrors "thoreinstein.com/prc/pkg/errors"
)

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// New returns a logger writing to w at the given level and format
// ("console" or "json").
func New(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, ok := levels[strings.ToLower(level)]
	if !ok {
		return nil, prcerrors.NewConfigError("log.level", "unsupported log level: "+level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, prcerrors.NewConfigError("log.format", "unsupported log format: "+format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zap.New(core), nil
}

// FromConfig builds the stderr logger for cfg. Verbose forces debug level.
func FromConfig(cfg config.LogConfig, verbose bool) (*zap.Logger, error) {
	level := cfg.Level
	if verbose {
		level = "debug"
	}
	if level == "" {
		level = "warn"
	}
	return New(level, cfg.Format, os.Stderr)
}
