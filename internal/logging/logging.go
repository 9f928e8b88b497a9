// Package logging provides the server's leveled logger: a thin wrapper
// around the standard library's log.Logger with named levels and
// stdout-or-file output, in the style of the dKVLogger reference.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level orders the five severities the configuration surface names.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

// ParseLevel maps the `loglevel` configuration value to a Level, defaulting
// to Info for any unrecognized string.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	case "fatal":
		return Fatal
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

// Logger filters by a minimum level and writes "LEVEL | message" lines to
// an underlying *log.Logger.
type Logger struct {
	min    Level
	out    *log.Logger
	closer func() error
}

// New builds a Logger writing to logfile if non-empty, else to standard
// output. The returned closer (possibly a no-op) should be called once
// during shutdown.
func New(minLevel Level, logfile string) (*Logger, func() error, error) {
	if logfile == "" {
		return &Logger{min: minLevel, out: log.New(os.Stdout, "", log.LstdFlags)}, func() error { return nil }, nil
	}

	f, err := os.OpenFile(logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open %s: %w", logfile, err)
	}
	l := &Logger{min: minLevel, out: log.New(f, "", log.LstdFlags), closer: f.Close}
	return l, l.closeFile, nil
}

func (l *Logger) closeFile() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	l.out.Printf("%-5s | %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...any)   { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)   { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any)  { l.log(Error, format, args...) }

// Fatalf logs at Fatal (regardless of the configured minimum, matching
// Bootstrap's contract that initialization failures always terminate the
// process) and exits with status 1.
func (l *Logger) Fatalf(format string, args ...any) {
	l.out.Printf("%-5s | %s", Fatal, fmt.Sprintf(format, args...))
	os.Exit(1)
}
