package ulogger

import (
	"sync"
	"testing"
)

// VerboseTestLogger sends every message to the test log, so output only shows
// for failing tests or with -v.
type VerboseTestLogger struct {
	mu sync.Mutex
	tb testing.TB
}

func NewVerboseTestLogger(tb testing.TB) *VerboseTestLogger {
	return &VerboseTestLogger{tb: tb}
}

func (l *VerboseTestLogger) logf(level, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tb.Helper()
	l.tb.Logf(level+" "+format, args...)
}

func (l *VerboseTestLogger) LogLevel() int                             { return 0 }
func (l *VerboseTestLogger) SetLogLevel(_ string)                      {}
func (l *VerboseTestLogger) New(_ string, _ ...Option) Logger          { return l }
func (l *VerboseTestLogger) Duplicate(_ ...Option) Logger              { return l }
func (l *VerboseTestLogger) Debugf(format string, args ...interface{}) { l.logf("DEBUG", format, args) }
func (l *VerboseTestLogger) Infof(format string, args ...interface{})  { l.logf("INFO", format, args) }
func (l *VerboseTestLogger) Warnf(format string, args ...interface{})  { l.logf("WARN", format, args) }
func (l *VerboseTestLogger) Errorf(format string, args ...interface{}) { l.logf("ERROR", format, args) }

// Fatalf fails the test immediately.
func (l *VerboseTestLogger) Fatalf(format string, args ...interface{}) {
	l.tb.Helper()
	l.tb.Fatalf("FATAL "+format, args...)
}
