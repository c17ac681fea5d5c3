package ports

// Logger defines the interface for logging. The engine holds no global
// logger; callers inject an implementation at construction time.
type Logger interface {
	Debug(message string)
	Error(message string)
}

// NopLogger discards all messages.
type NopLogger struct{}

func (NopLogger) Debug(string) {}
func (NopLogger) Error(string) {}
