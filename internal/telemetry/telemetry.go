// Package telemetry wraps zap so the core can log structured events
// (index builds, invalidations, internal errors) without requiring a
// logger: every entry point accepts a *zap.Logger that defaults to a no-op
// logger, keeping the package embeddable in contexts that don't want
// logging at all.
package telemetry

import "go.uber.org/zap"

// NewNop returns a logger that discards everything, the default used
// whenever a caller passes nil.
func NewNop() *zap.Logger { return zap.NewNop() }

// OrDefault returns logger unchanged if non-nil, otherwise NewNop().
func OrDefault(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger
}
