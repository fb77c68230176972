package types

// Logger is the capability required by every component that logs.
// Shape mirrors the teacher's pkg/mcast/definition.Logger, so the rest of
// the core can stay agnostic of the backing implementation.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})

	// With returns a Logger that prefixes every entry with the given
	// structured fields, e.g.
	// log.With(map[string]interface{}{"node": id.String()}).
	With(fields map[string]interface{}) Logger
}
