// Package logging is the single place in this module that owns a logrus
// logger instance. Every other package calls the package-level helpers
// here instead of constructing its own logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}()

// Configure lets cmd/fieldcore adjust verbosity after flags are parsed.
func Configure(level logrus.Level) {
	log.SetLevel(level)
}

// Warnf logs a soft-mismatch/advisory condition per the ("soft schema
// mismatches" and "unknown field name in remap config").
func Warnf(format string, args ...any) {
	log.Warnf(format, args...)
}

// WithError returns an entry carrying err, for call sites that want to add
// further structured fields before logging.
func WithError(err error) *logrus.Entry {
	return log.WithError(err)
}

// WithField returns an entry carrying one structured field.
func WithField(key string, value any) *logrus.Entry {
	return log.WithField(key, value)
}

// Fatalf logs at fatal level and exits the process. Reserved for the fatal
// startup/logic errors the says must terminate the process; call this
// only from the top-level recover in cmd/fieldcore, never deep in a
// package, so the stack trace attached by go-errors survives to the log
// line.
func Fatalf(format string, args ...any) {
	log.Fatalf(format, args...)
}
