// Package logging builds the process-wide zap logger. Journal text is never
// logged anywhere in this codebase; log lines carry ids, depths, and counts
// only.
package logging

import (
	"go.uber.org/zap"
)

// New returns a production JSON logger, or a human-readable debug logger
// when debug is set.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
