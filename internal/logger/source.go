package logger

import "github.com/marmos91/playground/pkg/datasource"

// SourceLogger writes data source log messages into the process log,
// prefixed with the source name.
type SourceLogger struct {
	Name string
}

// ForSource returns a datasource.Logger backed by the process logger.
func ForSource(name string) *SourceLogger {
	return &SourceLogger{Name: name}
}

// Log maps data source levels onto process levels. Trace is folded into
// DEBUG and Critical into ERROR.
func (s *SourceLogger) Log(level datasource.LogLevel, message string) {
	if s.Name != "" {
		message = "[" + s.Name + "] " + message
	}

	switch level {
	case datasource.LogTrace, datasource.LogDebug:
		Debug("%s", message)
	case datasource.LogInformation:
		Info("%s", message)
	case datasource.LogWarning:
		Warn("%s", message)
	default:
		Error("%s", message)
	}
}
