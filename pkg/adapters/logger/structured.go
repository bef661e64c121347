package logger

import (
	"io"

	"github.com/ideamans/go-l10n"
	"github.com/sirupsen/logrus"

	"github.com/user/objtrack/pkg/ports"
)

// StructuredLogger writes leveled records through logrus, tagging each with
// its component.
type StructuredLogger struct {
	entry *logrus.Entry
	quiet bool
}

// NewStructured creates a logrus-backed logger. With json set, records are
// emitted as JSON objects, one per line.
func NewStructured(level ports.LogLevel, w io.Writer, json bool) *StructuredLogger {
	l := logrus.New()
	l.SetOutput(w)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	l.SetLevel(toLogrusLevel(level))
	return &StructuredLogger{entry: logrus.NewEntry(l), quiet: level == ports.LevelQuiet}
}

func toLogrusLevel(level ports.LogLevel) logrus.Level {
	switch level {
	case ports.LevelDebug:
		return logrus.DebugLevel
	case ports.LevelWarn:
		return logrus.WarnLevel
	case ports.LevelError, ports.LevelQuiet:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *StructuredLogger) Debug(msg string, args ...interface{}) {
	l.entry.Debug(l10n.F(msg, args...))
}

func (l *StructuredLogger) Info(msg string, args ...interface{}) {
	l.entry.Info(l10n.F(msg, args...))
}

func (l *StructuredLogger) Warn(msg string, args ...interface{}) {
	l.entry.Warn(l10n.F(msg, args...))
}

func (l *StructuredLogger) Error(msg string, args ...interface{}) {
	if l.quiet {
		return
	}
	l.entry.Error(l10n.F(msg, args...))
}

// WithComponent returns a logger that adds a "component" field.
func (l *StructuredLogger) WithComponent(component string) ports.Logger {
	return &StructuredLogger{
		entry: l.entry.WithFields(logrus.Fields{"component": component}),
		quiet: l.quiet,
	}
}

var _ ports.Logger = (*StructuredLogger)(nil)
