package ulogger

import (
	"github.com/ordishs/gocore"
)

// GoCoreLogger logs through gocore, which always writes to stdout.
type GoCoreLogger struct {
	*gocore.Logger
	skipFrame int
}

func NewGoCoreLogger(service string, options ...Option) *GoCoreLogger {
	if service == "" {
		service = defaultService
	}

	opts := applyOptions(options)

	return &GoCoreLogger{
		Logger:    gocore.Log(service, gocore.NewLogLevelFromString(opts.logLevel)),
		skipFrame: opts.skip,
	}
}

// New keeps the level of g for the new service.
func (g *GoCoreLogger) New(service string, options ...Option) Logger {
	return &GoCoreLogger{
		Logger:    gocore.Log(service, g.Logger.GetLogLevel()),
		skipFrame: applyOptions(options).skip,
	}
}

func (g *GoCoreLogger) Duplicate(options ...Option) Logger {
	opts := applyOptions(options)

	dup := &GoCoreLogger{Logger: g.Logger, skipFrame: g.skipFrame}
	if opts.skip != 0 {
		dup.skipFrame = opts.skip
	}

	return dup
}

// SetLogLevel is a noop, gocore fixes the level when the logger is created.
func (g *GoCoreLogger) SetLogLevel(_ string) {}
