package cli

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the production JSON logger on w: warnings and above by
// default, everything when verbose.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	if w == nil {
		return zap.NewNop()
	}
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		level.SetLevel(zap.DebugLevel)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), level)
	return zap.New(core).Named("buildtl")
}
