// Package rlog provides the process-wide structured logger for rupdate,
// built on logrus the way pkg/pillar/base wraps it for its LogObject type.
// Unlike that long-running-service wrapper, rupdate is a short-lived CLI
// process, so a single package-level logger is enough.
package rlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return l
}

// Configure sets the logger's verbosity from the CLI's -v/-d flags.
// debug, when set, takes precedence over verbose: -v has no further effect
// once -d is given.
func Configure(verbose, debug bool) {
	switch {
	case debug:
		logger.SetLevel(logrus.DebugLevel)
	case verbose:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}
}

// Debug logs at debug level.
func Debug(args ...interface{}) { logger.Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) { logger.Debugf(format, args...) }

// Info logs at info level.
func Info(args ...interface{}) { logger.Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) { logger.Infof(format, args...) }

// Warn logs at warn level.
func Warn(args ...interface{}) { logger.Warn(args...) }

// Error logs at error level.
func Error(args ...interface{}) { logger.Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) { logger.Errorf(format, args...) }

// WithField returns a logrus entry carrying a structured field, for callers
// that want to attach e.g. the partition set name to a burst of messages.
func WithField(key string, value interface{}) *logrus.Entry {
	return logger.WithField(key, value)
}
