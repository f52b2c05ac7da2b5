package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel constants
const (
	LogLevelError = "error"
	LogLevelWarn  = "warn"
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"
)

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var (
	mu   sync.RWMutex
	base = newZerolog(os.Stdout, LogLevelInfo)
)

// Setup configures the global logger from config.
// Falls back to stdout when the log file cannot be opened.
func Setup(config *LoggingConfig) {
	level := strings.ToLower(config.Level)
	if level == "" {
		level = LogLevelInfo
	}

	var output io.Writer = os.Stdout
	if config.File != "" {
		// 0600: owner read/write only
		f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			LogStartup("Failed to open log file %s: %v", config.File, err)
		} else {
			output = f
		}
	}

	SetOutput(output, level)
}

// SetOutput replaces the global writer and level. Used by Setup and by tests.
func SetOutput(w io.Writer, level string) {
	l := newZerolog(w, level)
	mu.Lock()
	base = l
	mu.Unlock()
}

func newZerolog(w io.Writer, level string) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(console).Level(toZerologLevel(level)).With().Timestamp().Logger()
}

func toZerologLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelTrace:
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// LogStartup logs startup messages that should always be visible regardless of log level
func LogStartup(format string, args ...interface{}) {
	current().Log().Msgf("🔧 "+format, args...)
}

func LogError(format string, args ...interface{}) {
	current().Error().Msgf("❌ "+format, args...)
}

func LogWarn(format string, args ...interface{}) {
	current().Warn().Msgf("⚠️ "+format, args...)
}

func LogInfo(format string, args ...interface{}) {
	current().Info().Msgf("ℹ️ "+format, args...)
}

func LogDebug(format string, args ...interface{}) {
	current().Debug().Msgf("🔧 "+format, args...)
}

func LogTrace(format string, args ...interface{}) {
	current().Trace().Msgf("🔍 "+format, args...)
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return current().GetLevel() <= zerolog.DebugLevel
}

// IsTraceEnabled checks if trace logging is enabled
func IsTraceEnabled() bool {
	return current().GetLevel() <= zerolog.TraceLevel
}
