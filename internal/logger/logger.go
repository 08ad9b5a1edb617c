package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// backgroundID marks log lines that don't belong to a traced operation
const backgroundID = "xxxxxxxx"

var (
	mu   sync.RWMutex
	base = newBase(os.Stderr, "console", zerolog.InfoLevel)
)

func newBase(out io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Init configures the process-wide log sink. Unknown levels fall back to info.
func Init(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	mu.Lock()
	base = newBase(os.Stderr, format, lvl)
	mu.Unlock()
}

// SetOutput redirects all loggers to w using JSON lines. Intended for tests.
func SetOutput(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.DebugLevel
	}

	mu.Lock()
	base = newBase(w, "json", lvl)
	mu.Unlock()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Logger provides structured logging across the application
type Logger struct {
	component string
}

// New creates a new logger for a specific component
func New(component string) *Logger {
	return &Logger{component: component}
}

// GenerateID creates a short unique identifier for request/operation tracing
func GenerateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Log writes a structured log message tagged with the component and trace id
func (l *Logger) Log(id string, level zerolog.Level, message string, args ...interface{}) {
	zl := current()
	event := zl.WithLevel(level)
	if event == nil {
		return
	}
	event.Str("id", id).Str("component", l.component).Msgf(message, args...)
}

// Debug logs debug level messages
func (l *Logger) Debug(id, message string, args ...interface{}) {
	l.Log(id, zerolog.DebugLevel, message, args...)
}

// Info logs info level messages
func (l *Logger) Info(id, message string, args ...interface{}) {
	l.Log(id, zerolog.InfoLevel, message, args...)
}

// Warn logs warning level messages
func (l *Logger) Warn(id, message string, args ...interface{}) {
	l.Log(id, zerolog.WarnLevel, message, args...)
}

// Error logs error level messages
func (l *Logger) Error(id, message string, args ...interface{}) {
	l.Log(id, zerolog.ErrorLevel, message, args...)
}

// DebugBg logs debug messages for background operations
func (l *Logger) DebugBg(message string, args ...interface{}) {
	l.Log(backgroundID, zerolog.DebugLevel, message, args...)
}

// InfoBg logs info messages for background operations
func (l *Logger) InfoBg(message string, args ...interface{}) {
	l.Log(backgroundID, zerolog.InfoLevel, message, args...)
}

// WarnBg logs warning messages for background operations
func (l *Logger) WarnBg(message string, args ...interface{}) {
	l.Log(backgroundID, zerolog.WarnLevel, message, args...)
}

// ErrorBg logs error messages for background operations
func (l *Logger) ErrorBg(message string, args ...interface{}) {
	l.Log(backgroundID, zerolog.ErrorLevel, message, args...)
}
