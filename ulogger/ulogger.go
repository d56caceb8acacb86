// Package ulogger is the logging facade used by every package. Loggers are
// created per service and backed by zerolog or gocore.
package ulogger

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

const defaultService = "avercore"

// New returns a logger for service using the backend selected by
// WithLoggerType.
func New(service string, options ...Option) Logger {
	if applyOptions(options).loggerType == "gocore" {
		return NewGoCoreLogger(service, options...)
	}

	return NewZeroLogger(service, options...)
}
