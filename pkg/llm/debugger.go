package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ResponseDebugger appends raw provider payloads to
// debug/responses/<provider>/<request id>.log.
type ResponseDebugger struct {
	file    *os.File
	enabled bool
}

// NewResponseDebugger opens the dump file when enabled. Failures only log:
// debugging must never break a completion.
func NewResponseDebugger(ctx context.Context, root, provider string, enabled bool) *ResponseDebugger {
	if !enabled {
		return &ResponseDebugger{}
	}
	if root == "" {
		root = "debug"
	}

	debugDir := filepath.Join(root, "responses", provider)
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		slog.ErrorContext(ctx, "Failed to create debug directory", "dir", debugDir, "error", err)
		return &ResponseDebugger{}
	}

	name := RequestIDFrom(ctx)
	if name == "" {
		name = time.Now().Format("20060102_150405")
	}
	filename := filepath.Join(debugDir, fmt.Sprintf("%s.log", name))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to open debug file", "file", filename, "error", err)
		return &ResponseDebugger{}
	}

	slog.DebugContext(ctx, "Debug mode ON", "provider", provider, "file", filename)
	return &ResponseDebugger{file: f, enabled: true}
}

// Enabled reports whether payloads are being written.
func (d *ResponseDebugger) Enabled() bool {
	return d.enabled && d.file != nil
}

// WriteJSON marshals v and appends it as one line.
func (d *ResponseDebugger) WriteJSON(v any) {
	if !d.Enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal debug payload", "error", err)
		return
	}
	d.write(data)
}

// WriteString appends s as one line.
func (d *ResponseDebugger) WriteString(s string) {
	if !d.Enabled() {
		return
	}
	d.write([]byte(s))
}

func (d *ResponseDebugger) write(data []byte) {
	if _, err := d.file.Write(append(data, '\n')); err != nil {
		slog.Warn("Failed to write to debug file", "error", err)
	}
}

// Close closes the dump file.
func (d *ResponseDebugger) Close() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
}
