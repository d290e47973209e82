package logger

// NewTestLogger returns a Logger whose output is discarded, for use in tests
// that construct real services but don't want log noise.
func NewTestLogger() Logger {
	return &noopLogger{}
}

type noopLogger struct{}

func (n *noopLogger) Debug(msg string) {}
func (n *noopLogger) Info(msg string)  {}
func (n *noopLogger) Warn(msg string)  {}
func (n *noopLogger) Error(msg string) {}

func (n *noopLogger) WithField(key string, value interface{}) Logger  { return n }
func (n *noopLogger) WithFields(fields map[string]interface{}) Logger { return n }
