package logging

// NoopLogger discards everything. Useful in tests and as a safe default when
// no logger is injected.
type NoopLogger struct{}

// NewNoop returns a logger that discards all entries.
func NewNoop() Logger { return &NoopLogger{} }

func (n *NoopLogger) Debug(string, ...any) {}
func (n *NoopLogger) Info(string, ...any)  {}
func (n *NoopLogger) Warn(string, ...any)  {}
func (n *NoopLogger) Error(string, ...any) {}

func (n *NoopLogger) WithComponent(string) Logger { return n }
func (n *NoopLogger) WithTraceID(string) Logger   { return n }
