// Package definition holds the default, concrete implementations of the
// capabilities the core depends on through interfaces — today, just the
// default Logger. Named after the teacher's pkg/mcast/definition package,
// which plays the same role.
package definition

import (
	"github.com/sirupsen/logrus"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// DefaultLogger adapts a logrus.FieldLogger to the types.Logger
// capability. Used when a caller does not supply their own Logger.
type DefaultLogger struct {
	entry *logrus.Entry
}

// NewDefaultLogger builds a DefaultLogger writing to stderr at info level,
// matching the teacher's NewDefaultLogger default verbosity.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return &DefaultLogger{entry: logrus.NewEntry(l)}
}

// ToggleDebug raises or lowers the backing logger's level, mirroring the
// teacher's ToggleDebug(bool) bool signature.
func (l *DefaultLogger) ToggleDebug(value bool) bool {
	if value {
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	}
	return value
}

func (l *DefaultLogger) With(fields map[string]interface{}) types.Logger {
	return &DefaultLogger{entry: l.entry.WithFields(fields)}
}

func (l *DefaultLogger) Info(v ...interface{})                 { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(f string, v ...interface{})      { l.entry.Infof(f, v...) }
func (l *DefaultLogger) Warn(v ...interface{})                 { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(f string, v ...interface{})      { l.entry.Warnf(f, v...) }
func (l *DefaultLogger) Error(v ...interface{})                { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(f string, v ...interface{})     { l.entry.Errorf(f, v...) }
func (l *DefaultLogger) Debug(v ...interface{})                { l.entry.Debug(v...) }
func (l *DefaultLogger) Debugf(f string, v ...interface{})     { l.entry.Debugf(f, v...) }
func (l *DefaultLogger) Fatal(v ...interface{})                { l.entry.Fatal(v...) }
func (l *DefaultLogger) Fatalf(f string, v ...interface{})     { l.entry.Fatalf(f, v...) }
