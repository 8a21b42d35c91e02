// Package logger provides a wrapper around logrus for structured logging.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a new configured logger instance
func NewLogger(logLevel string) *logrus.Logger {
	return newLogger(os.Stdout, logLevel, os.Getenv("ENVIRONMENT"))
}

func newLogger(out io.Writer, logLevel, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.Warnf("Invalid log level '%s', defaulting to info", logLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Use JSON formatter for structured logging in production
	if environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	return logger
}

// Discard returns a logger that drops everything. Used by tests and by
// callers that pass a nil logger.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
