package monitor

import "time"

// Message types reported to a Monitor.
const (
	TypeUser      = "USER"
	TypeAssistant = "ASSISTANT"
	TypeError     = "ERROR"
)

// MonitorMessage is one observed conversation event.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string // TypeUser, TypeAssistant or TypeError
	ChannelID   string
	SessionID   string
	Content     string
}

// Monitor observes the turns flowing through the service.
type Monitor interface {
	Start() error
	Stop() error
	OnMessage(msg MonitorMessage)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Start() error             { return nil }
func (Nop) Stop() error              { return nil }
func (Nop) OnMessage(MonitorMessage) {}
