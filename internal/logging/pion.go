package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pion/logging"
)

// PionFactory routes pion's scoped loggers into slog.
type PionFactory struct {
	Logger *slog.Logger
}

// NewPionFactory returns a factory writing to logger, or to slog.Default when nil.
func NewPionFactory(logger *slog.Logger) *PionFactory {
	return &PionFactory{Logger: logger}
}

func (f *PionFactory) NewLogger(scope string) logging.LeveledLogger {
	l := f.Logger
	if l == nil {
		l = slog.Default()
	}
	return &pionLogger{logger: l.With("component", "pion", "scope", scope)}
}

type pionLogger struct {
	logger *slog.Logger
}

func (l *pionLogger) log(level slog.Level, msg string) {
	l.logger.Log(context.Background(), level, msg)
}

func (l *pionLogger) logf(level slog.Level, format string, args ...any) {
	if !l.logger.Enabled(context.Background(), level) {
		return
	}
	l.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (l *pionLogger) Trace(msg string)                  { l.log(LevelTrace, msg) }
func (l *pionLogger) Tracef(format string, args ...any) { l.logf(LevelTrace, format, args...) }
func (l *pionLogger) Debug(msg string)                  { l.log(slog.LevelDebug, msg) }
func (l *pionLogger) Debugf(format string, args ...any) { l.logf(slog.LevelDebug, format, args...) }
func (l *pionLogger) Info(msg string)                   { l.log(slog.LevelInfo, msg) }
func (l *pionLogger) Infof(format string, args ...any)  { l.logf(slog.LevelInfo, format, args...) }
func (l *pionLogger) Warn(msg string)                   { l.log(slog.LevelWarn, msg) }
func (l *pionLogger) Warnf(format string, args ...any)  { l.logf(slog.LevelWarn, format, args...) }
func (l *pionLogger) Error(msg string)                  { l.log(slog.LevelError, msg) }
func (l *pionLogger) Errorf(format string, args ...any) { l.logf(slog.LevelError, format, args...) }
