package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// StructuredLogger writes ELK-compatible JSON lines.
//
// node_id, message_id and operation are promoted to top-level fields so a single
// message can be followed through its pipeline stages.
type StructuredLogger struct {
	mu       sync.Mutex
	writer   io.Writer
	minLevel LogLevel
	fields   map[string]interface{}
	name     string
}

// LogLevel represents logging severity levels.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config value ("debug", "info", ...) to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// LogEntry is a single log line.
type LogEntry struct {
	Timestamp  string                 `json:"@timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Logger     string                 `json:"logger,omitempty"`
	SourceFile string                 `json:"source_file,omitempty"`
	SourceLine int                    `json:"source_line,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`

	NodeID    string `json:"node_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Operation string `json:"operation,omitempty"`

	Error      string `json:"error,omitempty"`
	ErrorType  string `json:"error_type,omitempty"`
	StackTrace string `json:"stack_trace,omitempty"`
}

// NewStructuredLogger creates a new structured logger.
func NewStructuredLogger(writer io.Writer, minLevel LogLevel) *StructuredLogger {
	if writer == nil {
		writer = os.Stdout
	}

	hostname, _ := os.Hostname()

	return &StructuredLogger{
		writer:   writer,
		minLevel: minLevel,
		name:     "flownodes",
		fields: map[string]interface{}{
			"service": "flownodes",
			"host":    hostname,
		},
	}
}

// NewDefaultLogger creates a logger with INFO level to stdout.
func NewDefaultLogger() *StructuredLogger {
	return NewStructuredLogger(os.Stdout, InfoLevel)
}

// SetMinLevel sets the minimum log level.
func (l *StructuredLogger) SetMinLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// WithField adds a global field to all log entries.
func (l *StructuredLogger) WithField(key string, value interface{}) *StructuredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fields[key] = value
	return l
}

// Debug logs a debug-level message.
func (l *StructuredLogger) Debug(message string, fields ...map[string]interface{}) {
	l.log(DebugLevel, message, nil, fields...)
}

// Info logs an info-level message.
func (l *StructuredLogger) Info(message string, fields ...map[string]interface{}) {
	l.log(InfoLevel, message, nil, fields...)
}

// Warn logs a warning-level message.
func (l *StructuredLogger) Warn(message string, fields ...map[string]interface{}) {
	l.log(WarnLevel, message, nil, fields...)
}

// Error logs an error-level message.
func (l *StructuredLogger) Error(message string, err error, fields ...map[string]interface{}) {
	l.log(ErrorLevel, message, err, fields...)
}

// Fatal logs a fatal-level message and exits the program.
func (l *StructuredLogger) Fatal(message string, err error, fields ...map[string]interface{}) {
	l.log(FatalLevel, message, err, fields...)
	os.Exit(1)
}

func (l *StructuredLogger) log(level LogLevel, message string, err error, fields ...map[string]interface{}) {
	l.mu.Lock()
	minLevel := l.minLevel
	l.mu.Unlock()
	if level < minLevel {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   message,
		Logger:    l.name,
		Fields:    make(map[string]interface{}),
	}

	// Skip log() and the public method; LoggerContext adds one more frame but
	// the caller is still more useful than the logging package itself.
	if _, file, line, ok := runtime.Caller(2); ok {
		entry.SourceFile = file
		entry.SourceLine = line
	}

	l.mu.Lock()
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	l.mu.Unlock()

	for _, fieldMap := range fields {
		for k, v := range fieldMap {
			switch k {
			case "node_id":
				if s, ok := v.(string); ok {
					entry.NodeID = s
					continue
				}
			case "message_id":
				if s, ok := v.(string); ok {
					entry.MessageID = s
					continue
				}
			case "operation":
				if s, ok := v.(string); ok {
					entry.Operation = s
					continue
				}
			}
			entry.Fields[k] = v
		}
	}

	if err != nil {
		entry.Error = err.Error()
		entry.ErrorType = fmt.Sprintf("%T", err)
		if level >= FatalLevel {
			entry.StackTrace = captureStackTrace()
		}
	}

	data, mErr := json.Marshal(entry)
	if mErr != nil {
		data = []byte(fmt.Sprintf("{\"error\":\"failed to encode log entry\",\"original_message\":%q}", message))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Write(append(data, '\n'))
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// LoggerContext provides contextual logging with pre-set fields.
type LoggerContext struct {
	logger *StructuredLogger
	fields map[string]interface{}
}

// NewContext creates a new logger context with pre-set fields.
func (l *StructuredLogger) NewContext(fields map[string]interface{}) *LoggerContext {
	return &LoggerContext{
		logger: l,
		fields: fields,
	}
}

// With returns a child context carrying additional fields.
func (lc *LoggerContext) With(fields map[string]interface{}) *LoggerContext {
	return &LoggerContext{logger: lc.logger, fields: lc.mergeFields(fields)}
}

// Debug logs a debug-level message with context fields.
func (lc *LoggerContext) Debug(message string, fields ...map[string]interface{}) {
	lc.logger.Debug(message, lc.mergeFields(fields...))
}

// Info logs an info-level message with context fields.
func (lc *LoggerContext) Info(message string, fields ...map[string]interface{}) {
	lc.logger.Info(message, lc.mergeFields(fields...))
}

// Warn logs a warning-level message with context fields.
func (lc *LoggerContext) Warn(message string, fields ...map[string]interface{}) {
	lc.logger.Warn(message, lc.mergeFields(fields...))
}

// Error logs an error-level message with context fields.
func (lc *LoggerContext) Error(message string, err error, fields ...map[string]interface{}) {
	lc.logger.Error(message, err, lc.mergeFields(fields...))
}

func (lc *LoggerContext) mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(lc.fields))
	for k, v := range lc.fields {
		merged[k] = v
	}
	for _, fieldMap := range fields {
		for k, v := range fieldMap {
			merged[k] = v
		}
	}
	return merged
}

var defaultLogger = NewDefaultLogger()

// SetDefaultLogger sets the global default logger.
func SetDefaultLogger(logger *StructuredLogger) {
	defaultLogger = logger
}

// GetDefaultLogger returns the global default logger.
func GetDefaultLogger() *StructuredLogger {
	return defaultLogger
}
