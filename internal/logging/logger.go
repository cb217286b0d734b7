// Package logging provides the structured logger used across the adaptive
// cache controller. Output is JSON by default (one entry per line) and can be
// switched to human-readable text via LOG_JSON=false.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the structured logging interface the controller depends on.
// Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	WithComponent(component string) Logger
	WithTraceID(traceID string) Logger
}

// LogLevel represents logging severity levels.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// ParseLevel converts a level name to a LogLevel, defaulting to INFO.
func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// entry is the serialized shape of a single log line.
type entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	TraceID   string         `json:"trace_id,omitempty"`
	Component string         `json:"component,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// StructuredLogger writes structured entries to a single output stream.
type StructuredLogger struct {
	level     LogLevel
	traceID   string
	component string
	useJSON   bool
	out       io.Writer
}

// New creates a structured logger writing to stderr.
func New(level LogLevel) Logger {
	return &StructuredLogger{
		level:   level,
		useJSON: os.Getenv("LOG_JSON") != "false",
		out:     os.Stderr,
	}
}

// NewWithOutput creates a structured logger writing to the given stream.
// Used by tests to capture output.
func NewWithOutput(level LogLevel, out io.Writer) Logger {
	return &StructuredLogger{level: level, useJSON: true, out: out}
}

// WithComponent returns a logger scoped to a component name.
func (l *StructuredLogger) WithComponent(component string) Logger {
	cp := *l
	cp.component = component
	return &cp
}

// WithTraceID returns a logger carrying a trace ID on every entry.
func (l *StructuredLogger) WithTraceID(traceID string) Logger {
	cp := *l
	cp.traceID = traceID
	return &cp
}

func (l *StructuredLogger) Debug(msg string, fields ...any) { l.log(DEBUG, "DEBUG", msg, fields) }
func (l *StructuredLogger) Info(msg string, fields ...any)  { l.log(INFO, "INFO", msg, fields) }
func (l *StructuredLogger) Warn(msg string, fields ...any)  { l.log(WARN, "WARN", msg, fields) }
func (l *StructuredLogger) Error(msg string, fields ...any) { l.log(ERROR, "ERROR", msg, fields) }

func (l *StructuredLogger) log(level LogLevel, name, msg string, fields []any) {
	if l.level > level {
		return
	}

	fieldMap := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		fieldMap[fmt.Sprintf("%v", fields[i])] = fields[i+1]
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     name,
		Message:   msg,
		TraceID:   l.traceID,
		Component: l.component,
	}
	if len(fieldMap) > 0 {
		e.Fields = fieldMap
	}

	if l.useJSON {
		data, err := json.Marshal(e)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
			return
		}
		fmt.Fprintln(l.out, string(data))
		return
	}

	parts := []string{e.Timestamp, "[" + e.Level + "]"}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	parts = append(parts, e.Message)
	for k, v := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	fmt.Fprintln(l.out, strings.Join(parts, " "))
}

// GenerateTraceID returns a fresh trace identifier.
func GenerateTraceID() string {
	return uuid.New().String()
}
