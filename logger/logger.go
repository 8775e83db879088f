// Package logger sets up the global zap logger.
package logger

import (
	"github.com/cnosuke/httpget/config"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds a logger from cfg and installs it as the zap global. Output
// goes to cfg.Path when set and to stderr otherwise; stdout is never
// used so the MCP stdio transport keeps it to itself.
func Init(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	output := "stderr"
	if cfg.Path != "" {
		output = cfg.Path
	}
	zc.OutputPaths = []string{output}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	zap.ReplaceGlobals(l)
	return l, nil
}
