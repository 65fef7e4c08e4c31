package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ---------------------
// ----- Functions -----
// ---------------------

// NewLogger returns the logger used by the allocator. Verbose mode logs every allocation step at debug
// level in the human readable development format; otherwise only warnings and errors are logged. All
// logging goes to stderr, so dumps written to stdout stay clean.
func NewLogger(opt Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opt.Verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.Sampling = nil
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
