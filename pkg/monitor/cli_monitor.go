package monitor

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// CLIMonitor prints every observed turn to a terminal.
type CLIMonitor struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewCLIMonitor creates a monitor writing to stdout.
func NewCLIMonitor() *CLIMonitor {
	return NewWriterMonitor(os.Stdout)
}

// NewWriterMonitor creates a monitor writing to w.
func NewWriterMonitor(w io.Writer) *CLIMonitor {
	return &CLIMonitor{writer: w}
}

func (m *CLIMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	fmt.Fprintln(m.writer, "Agent monitor active - processed messages will appear here")
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	return nil
}

func (m *CLIMonitor) Stop() error {
	return nil
}

func (m *CLIMonitor) OnMessage(msg MonitorMessage) {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")

	var displayMsg string
	switch msg.MessageType {
	case TypeAssistant:
		displayMsg = fmt.Sprintf("[AI -> %s] %s", msg.SessionID, msg.Content)
	case TypeError:
		displayMsg = fmt.Sprintf("[ERR %s/%s] %s", msg.ChannelID, msg.SessionID, msg.Content)
	default:
		displayMsg = fmt.Sprintf("[%s/%s] %s", msg.ChannelID, msg.SessionID, msg.Content)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// gray timestamp
	fmt.Fprintf(m.writer, "\033[90m[%s]\033[0m %s\n", timestamp, displayMsg)
}
