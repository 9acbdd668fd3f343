package core

type (
	// Logger args may be errors or LogFields; anything else is printed as is.
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// LogFields are structured key/values attached to a log event.
	LogFields map[string]interface{}
)
