// Package logging provides the structured logger shared by the broker and
// endpoint processes, wired on go.uber.org/zap the way
// dan-strohschein-SyndrDB's server package wires zap into its connection
// handling.
package logging

import "go.uber.org/zap"

// New builds a SugaredLogger for the given component name ("librarian" or
// "endpoint"). It always uses zap's development configuration, which writes
// human-readable console output; no environment variable changes the format.
func New(component string) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than crash the process over
		// logging configuration.
		logger = zap.NewNop()
	}
	return logger.Sugar().Named(component)
}
