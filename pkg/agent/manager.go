package agent

import (
	"context"
	"time"

	"agentapi/pkg/api"
	"agentapi/pkg/llm"
	"agentapi/pkg/monitor"
	"agentapi/pkg/tools"
)

// DefaultSessionID is used by Run, which has no session of its own.
const DefaultSessionID = "default"

// Manager routes user input to the agent of its session and owns the tool
// registry exposed to callers.
type Manager struct {
	store    *SessionStore
	registry *tools.ToolRegistry
	monitor  monitor.Monitor
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithTools pre-registers tool entries.
func WithTools(entries ...tools.Entry) Option {
	return func(m *Manager) {
		for _, e := range entries {
			m.registry.RegisterEntry(e)
		}
	}
}

// WithMonitor reports every processed turn to mon.
func WithMonitor(mon monitor.Monitor) Option {
	return func(m *Manager) {
		if mon != nil {
			m.monitor = mon
		}
	}
}

// NewManager creates a manager over store. A nil registry gets an empty one.
func NewManager(store *SessionStore, registry *tools.ToolRegistry, opts ...Option) *Manager {
	if registry == nil {
		registry = tools.NewToolRegistry()
	}
	m := &Manager{
		store:    store,
		registry: registry,
		monitor:  monitor.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ProcessMessage answers userInput within sessionID's conversation.
func (m *Manager) ProcessMessage(ctx context.Context, sessionID, userInput string) (string, error) {
	m.monitor.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: monitor.TypeUser,
		ChannelID:   api.ChannelIDFrom(ctx),
		SessionID:   sessionID,
		Content:     userInput,
	})

	reply, err := m.store.Get(sessionID).Respond(ctx, userInput)
	if err != nil {
		m.monitor.OnMessage(monitor.MonitorMessage{
			Timestamp:   time.Now(),
			MessageType: monitor.TypeError,
			ChannelID:   api.ChannelIDFrom(ctx),
			SessionID:   sessionID,
			Content:     err.Error(),
		})
		return "", err
	}

	m.monitor.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: monitor.TypeAssistant,
		ChannelID:   api.ChannelIDFrom(ctx),
		SessionID:   sessionID,
		Content:     reply,
	})
	return reply, nil
}

// Run answers userInput in the shared default session.
func (m *Manager) Run(ctx context.Context, userInput string) (string, error) {
	return m.ProcessMessage(ctx, DefaultSessionID, userInput)
}

func (m *Manager) Tools() *tools.ToolRegistry {
	return m.registry
}

// History returns the memory of sessionID, or false if it is unknown.
func (m *Manager) History(sessionID string) ([]llm.Message, bool) {
	a, ok := m.store.Lookup(sessionID)
	if !ok {
		return nil, false
	}
	return a.Messages(), true
}

// ResetSession drops sessionID and reports whether it existed.
func (m *Manager) ResetSession(sessionID string) bool {
	return m.store.Delete(sessionID)
}

func (m *Manager) Sessions() *SessionStore {
	return m.store
}
