package logger

import (
	"fmt"
	"sync"
)

// ILogger is an interface for dependency injection
// Allows testing with mock loggers
type ILogger interface {
	LogInfo(format string, args ...interface{})
	LogWarn(format string, args ...interface{})
	LogError(format string, args ...interface{})
	LogDebug(format string, args ...interface{})
}

// StandardLogger implements ILogger using the global logger functions
type StandardLogger struct{}

// NewStandardLogger creates a logger that uses global logger functions
func NewStandardLogger() ILogger {
	return &StandardLogger{}
}

func (l *StandardLogger) LogInfo(format string, args ...interface{})  { LogInfo(format, args...) }
func (l *StandardLogger) LogWarn(format string, args ...interface{})  { LogWarn(format, args...) }
func (l *StandardLogger) LogError(format string, args ...interface{}) { LogError(format, args...) }
func (l *StandardLogger) LogDebug(format string, args ...interface{}) { LogDebug(format, args...) }

// MockLogger records formatted log messages for assertions in tests.
// Safe for use from several goroutines.
type MockLogger struct {
	mu            sync.Mutex
	InfoMessages  []string
	WarnMessages  []string
	ErrorMessages []string
	DebugMessages []string
}

// NewMockLogger creates a new mock logger for testing
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) LogInfo(format string, args ...interface{}) {
	l.record(&l.InfoMessages, format, args)
}

func (l *MockLogger) LogWarn(format string, args ...interface{}) {
	l.record(&l.WarnMessages, format, args)
}

func (l *MockLogger) LogError(format string, args ...interface{}) {
	l.record(&l.ErrorMessages, format, args)
}

func (l *MockLogger) LogDebug(format string, args ...interface{}) {
	l.record(&l.DebugMessages, format, args)
}

func (l *MockLogger) record(dst *[]string, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

// Reset clears all recorded messages
func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.InfoMessages = nil
	l.WarnMessages = nil
	l.ErrorMessages = nil
	l.DebugMessages = nil
}

// Count returns the number of recorded messages at the given level
func (l *MockLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch level {
	case LogLevelInfo:
		return len(l.InfoMessages)
	case LogLevelWarn:
		return len(l.WarnMessages)
	case LogLevelError:
		return len(l.ErrorMessages)
	case LogLevelDebug:
		return len(l.DebugMessages)
	}
	return 0
}

// Messages returns a copy of the recorded messages at the given level
func (l *MockLogger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var src []string
	switch level {
	case LogLevelInfo:
		src = l.InfoMessages
	case LogLevelWarn:
		src = l.WarnMessages
	case LogLevelError:
		src = l.ErrorMessages
	case LogLevelDebug:
		src = l.DebugMessages
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
