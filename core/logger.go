package core

// Logger is any service that can log messages.
// args are extra context; an error, Fields or the current user.User.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Fields is extra data attached to a log entry, like the group or assignment a request was about.
type Fields map[string]interface{}
