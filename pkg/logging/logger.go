// Package logging builds the zap loggers used by the order binaries.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config of the logger.
type Config struct {
	Level zapcore.Level
	// Output defaults to stdout.
	Output io.Writer
}

// New initiates a new JSON logger.
func New(cfg Config) *zap.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	ecfg := zap.NewProductionEncoderConfig()
	ecfg.TimeKey = "time"
	ecfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(ecfg),
		zapcore.AddSync(out),
		cfg.Level,
	)

	return zap.New(core, zap.AddCaller())
}
