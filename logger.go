package calratio

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a JSON logger writing errors to stderr and everything
// else to stdout. Debug messages are only kept when verbose is set.
func NewLogger(verbose bool) *zap.Logger {
	return newLogger(zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr), verbose)
}

func newLogger(stdout, stderr zapcore.WriteSyncer, verbose bool) *zap.Logger {
	lowest := zapcore.InfoLevel
	if verbose {
		lowest = zapcore.DebugLevel
	}
	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= lowest && lvl < zapcore.ErrorLevel
	})

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	encoder := zapcore.NewJSONEncoder(config)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, stderr, isErrorLevel),
		zapcore.NewCore(encoder, stdout, isInfoLevel),
	)
	return zap.New(core, zap.AddCaller())
}
