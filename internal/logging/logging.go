// Package logging implements structured JSON request logging with
// uuid-based correlation IDs, one line per handled request, leveled by
// the response's status code.
package logging

import (
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dev69/decs/internal/wire"
)

// Logger writes one JSON object per line to an underlying writer.
type Logger struct {
	out *log.Logger
}

// New wraps w (typically os.Stdout) as a structured logger.
func New(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", 0)}
}

// NewCorrelationID mints a request-scoped correlation ID, the
// wire-protocol analogue of an X-Request-ID header.
func NewCorrelationID() string {
	return uuid.New().String()
}

// ConnRequest logs one handled request: correlation ID, operation, key,
// resulting status, round-trip duration, and remote address.
func (l *Logger) ConnRequest(requestID, remoteAddr, op, key, status string, duration time.Duration) {
	l.write(levelForStatus(status), map[string]any{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"request_id":  requestID,
		"op":          op,
		"key":         key,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
		"remote_addr": remoteAddr,
	})
}

// Event logs an application-level message (startup, shutdown, backend
// connectivity) with arbitrary structured fields.
func (l *Logger) Event(level, message string, fields map[string]any) {
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   message,
	}
	for k, v := range fields {
		entry[k] = v
	}
	l.write(level, entry)
}

func (l *Logger) write(level string, entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		l.out.Printf("[ERROR] failed to marshal log entry: %v", err)
		return
	}
	l.out.Printf("[%s] %s", level, data)
}

// levelForStatus maps 5xx to ERROR, 4xx to WARN, everything else to INFO.
func levelForStatus(status string) string {
	code := wire.StatusCode(status)
	switch {
	case code >= 500:
		return "ERROR"
	case code >= 400:
		return "WARN"
	default:
		return "INFO"
	}
}
