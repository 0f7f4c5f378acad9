package core

// Logger is any leveled logger the application can report through.
// args may carry errors, context maps or a user.User for error reporters
// that support identifying the affected person.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
