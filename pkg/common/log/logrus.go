package log

import (
	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus entry to the Logger interface so an embedding
// server can route cursor and store diagnostics into its own logrus pipeline.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps the given logrus logger. A nil logger uses logrus.StandardLogger().
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}

func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

func (l *LogrusLogger) Warn(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

func (l *LogrusLogger) Fatal(msg string, args ...interface{}) {
	l.entry.Fatalf(msg, args...)
}

// WithFields returns a logger carrying the given fields as logrus fields.
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a logger carrying the given field.
func (l *LogrusLogger) WithField(key string, value interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}

// GetLevel maps the logrus level onto Level.
func (l *LogrusLogger) GetLevel() Level {
	switch l.entry.Logger.GetLevel() {
	case logrus.TraceLevel, logrus.DebugLevel:
		return LevelDebug
	case logrus.InfoLevel:
		return LevelInfo
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.ErrorLevel:
		return LevelError
	default:
		return LevelFatal
	}
}

// SetLevel sets the level on the underlying logrus logger, which affects every
// logger derived from it.
func (l *LogrusLogger) SetLevel(level Level) {
	switch level {
	case LevelDebug:
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	case LevelInfo:
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	case LevelWarn:
		l.entry.Logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		l.entry.Logger.SetLevel(logrus.ErrorLevel)
	default:
		l.entry.Logger.SetLevel(logrus.FatalLevel)
	}
}
