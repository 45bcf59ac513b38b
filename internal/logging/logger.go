// Package logging provides the structured logger shared by the tourfit
// commands, the HTTP service and, through a zap adapter, the search engine.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log entry.
type LogLevel string

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel LogLevel = "DEBUG"
	// InfoLevel is the default logging priority.
	InfoLevel LogLevel = "INFO"
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel LogLevel = "WARN"
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel LogLevel = "ERROR"
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel LogLevel = "FATAL"
)

// Format selects how entries are encoded.
type Format string

const (
	// JSONFormat writes one JSON object per line.
	JSONFormat Format = "json"
	// TextFormat writes "time LEVEL message key=value ..." lines.
	TextFormat Format = "text"
)

// Logger represents an active logging object.
type Logger struct {
	level  LogLevel
	format Format
	output io.Writer
	mu     *sync.Mutex
	fields map[string]interface{}
}

// New creates a new JSON Logger with the specified log level and output.
func New(level LogLevel, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		format: JSONFormat,
		output: output,
		mu:     &sync.Mutex{},
		fields: make(map[string]interface{}),
	}
}

// WithFormat returns a copy of the logger that encodes entries as format.
func (l *Logger) WithFormat(format Format) *Logger {
	c := *l
	c.format = format
	return &c
}

// Level returns the minimum level the logger writes.
func (l *Logger) Level() LogLevel {
	return l.level
}

// WithFields returns a new Logger with the specified fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		level:  l.level,
		format: l.format,
		output: l.output,
		mu:     l.mu,
		fields: newFields,
	}
}

// WithField returns a new Logger with the specified key-value pair.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithError returns a new Logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// log writes a log entry with the given level and message.
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "???"
		line = 0
	} else {
		// Only keep the last two parts of the file path
		parts := strings.Split(file, "/")
		if len(parts) > 2 {
			file = strings.Join(parts[len(parts)-2:], "/")
		}
	}

	// Merge fields
	allFields := make(map[string]interface{})
	for k, v := range l.fields {
		allFields[k] = v
	}
	for k, v := range fields {
		allFields[k] = v
	}

	if _, set := allFields["caller"]; !set {
		allFields["caller"] = fmt.Sprintf("%s:%d", file, line)
	}
	now := time.Now().UTC()

	var data []byte
	if l.format == TextFormat {
		data = encodeText(now, level, msg, allFields)
	} else {
		entry := make(map[string]interface{}, len(allFields)+3)
		for k, v := range allFields {
			entry[k] = v
		}
		entry["timestamp"] = now.Format(time.RFC3339Nano)
		entry["level"] = level
		entry["message"] = msg

		var err error
		data, err = json.Marshal(entry)
		if err != nil {
			// Values such as channels or NaN floats cannot be encoded as JSON.
			data = encodeText(now, level, msg, allFields)
		} else {
			data = append(data, '\n')
		}
	}

	l.mu.Lock()
	_, _ = l.output.Write(data)
	l.mu.Unlock()

	// Handle fatal level
	if level == FatalLevel {
		os.Exit(1)
	}
}

// encodeText renders an entry as a single logfmt-style line with sorted keys.
func encodeText(ts time.Time, level LogLevel, msg string, fields map[string]interface{}) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", ts.Format(time.RFC3339), level, msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l.shouldLog(level)
}

// shouldLog returns true if the given level should be logged.
func (l *Logger) shouldLog(level LogLevel) bool {
	var levels = map[LogLevel]int{
		DebugLevel: 0,
		InfoLevel:  1,
		WarnLevel:  2,
		ErrorLevel: 3,
		FatalLevel: 4,
	}

	shouldLog, exists := levels[level]
	if !exists {
		return false
	}

	currentLevel, exists := levels[l.level]
	if !exists {
		return false
	}

	return shouldLog >= currentLevel
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(DebugLevel, msg, f)
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(InfoLevel, msg, f)
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(WarnLevel, msg, f)
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(ErrorLevel, msg, f)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(FatalLevel, msg, f)
}

// CtxLogger is a logger that can be used with context.
type CtxLogger struct {
	*Logger
}

// FromContext returns a logger from the context or a new one if none exists.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a new context with the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

type ctxLoggerKey struct{}
