package ulogger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ordishs/gocore"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// ANSI colour codes, matching the ones gocore uses for its levels.
const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
	colorBlue   = 34
	colorWhite  = 37
	colorBold   = 1
)

type levelMapping struct {
	zero   zerolog.Level
	gocore int
	color  int
}

var levels = map[string]levelMapping{
	"DEBUG": {zerolog.DebugLevel, int(gocore.DEBUG), colorBlue},
	"INFO":  {zerolog.InfoLevel, int(gocore.INFO), colorGreen},
	"WARN":  {zerolog.WarnLevel, int(gocore.WARN), colorYellow},
	"ERROR": {zerolog.ErrorLevel, int(gocore.ERROR), colorRed},
	"FATAL": {zerolog.FatalLevel, int(gocore.FATAL), colorRed},
}

// lookupLevel falls back to INFO for unknown names.
func lookupLevel(name string) levelMapping {
	if m, ok := levels[strings.ToUpper(name)]; ok {
		return m
	}

	return levels["INFO"]
}

// ZeroLogger is the default Logger. Output is either pretty console lines or
// JSON, depending on the PRETTY_LOGS setting.
type ZeroLogger struct {
	zerolog.Logger
	service string
	writer  io.Writer
	skip    int
}

func NewZeroLogger(service string, options ...Option) *ZeroLogger {
	if service == "" {
		service = defaultService
	}

	opts := applyOptions(options)

	var (
		out io.Writer = opts.writer
		ctx zerolog.Context
	)

	if gocore.Config().GetBool("PRETTY_LOGS", true) {
		out = consoleWriter(opts.writer, service)
		ctx = zerolog.New(out).With()
	} else {
		ctx = zerolog.New(out).With().Str("service", service)
	}

	z := &ZeroLogger{
		Logger: ctx.
			CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1 + opts.skip).
			Timestamp().
			Logger(),
		service: service,
		writer:  opts.writer,
		skip:    opts.skip,
	}

	z.SetLogLevel(opts.logLevel)

	return z
}

func consoleWriter(w io.Writer, service string) zerolog.ConsoleWriter {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}

	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
		FormatTimestamp: func(i interface{}) string {
			s, _ := i.(string)
			ts, _ := time.Parse(time.RFC3339, s)

			return ts.Format("15:04:05")
		},
		FormatLevel: func(i interface{}) string {
			name, _ := i.(string)

			color := colorWhite
			if m, ok := levels[strings.ToUpper(name)]; ok {
				color = m.color
			} else if name == "panic" {
				color = colorRed
			}

			return "| " + colorize(strings.ToUpper(fmt.Sprintf("%-6s", name)), color, noColor) + "|"
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("| %-6s| %s", service, i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
		FormatCaller: func(i interface{}) string {
			return colorize(fmt.Sprintf("%-32s", shortCaller(i)), colorBold, noColor)
		},
	}
}

// shortCaller trims a caller path to its last two elements, e.g.
// blockchain/Chain.go:123.
func shortCaller(i interface{}) string {
	c, _ := i.(string)
	if c == "" {
		return c
	}

	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, c); err == nil {
			c = rel
		}
	}

	if parts := strings.Split(c, "/"); len(parts) > 2 {
		c = strings.Join(parts[len(parts)-2:], "/")
	}

	return c
}

// New creates a logger for another service on the same writer and level.
func (z *ZeroLogger) New(service string, options ...Option) Logger {
	inherited := []Option{
		WithWriter(z.writer),
		WithLevel(z.Logger.GetLevel().String()),
	}

	return NewZeroLogger(service, append(inherited, options...)...)
}

// Duplicate copies z. Only a level option is honoured.
func (z *ZeroLogger) Duplicate(options ...Option) Logger {
	dup := *z

	if opts := applyOptions(options); opts.logLevel != DefaultOptions().logLevel {
		dup.SetLogLevel(opts.logLevel)
	}

	return &dup
}

func (z *ZeroLogger) SetLogLevel(level string) {
	z.Logger = z.Logger.Level(lookupLevel(level).zero)
}

func (z *ZeroLogger) LogLevel() int {
	for _, m := range levels {
		if m.zero == z.Logger.GetLevel() {
			return m.gocore
		}
	}

	return int(gocore.INFO)
}

func (z *ZeroLogger) Debugf(format string, args ...interface{}) {
	z.Logger.Debug().Msgf(format, args...)
}

func (z *ZeroLogger) Infof(format string, args ...interface{}) {
	z.Logger.Info().Msgf(format, args...)
}

func (z *ZeroLogger) Warnf(format string, args ...interface{}) {
	z.Logger.Warn().Msgf(format, args...)
}

func (z *ZeroLogger) Errorf(format string, args ...interface{}) {
	z.Logger.Error().Msgf(format, args...)
}

func (z *ZeroLogger) Fatalf(format string, args ...interface{}) {
	z.Logger.Fatal().Msgf(format, args...)
}

// colorize wraps s in ANSI code c unless disabled or NO_COLOR is set.
func colorize(s string, c int, disabled bool) string {
	if disabled || c == 0 || os.Getenv("NO_COLOR") != "" {
		return s
	}

	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, s)
}
