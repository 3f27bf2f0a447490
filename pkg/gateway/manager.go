package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"agentapi/pkg/agent"
	"agentapi/pkg/api"
	"agentapi/pkg/llm"
	"agentapi/pkg/monitor"
	"agentapi/pkg/tools"
)

// GatewayManager owns the registered channels and routes every message they
// receive to the agent manager. It implements api.Backend.
type GatewayManager struct {
	channels        map[string]api.Channel
	agents          *agent.Manager
	monitor         monitor.Monitor
	shutdownTimeout time.Duration
	mu              sync.RWMutex
}

// NewGatewayManager creates a gateway in front of agents.
func NewGatewayManager(agents *agent.Manager) *GatewayManager {
	return &GatewayManager{
		channels:        make(map[string]api.Channel),
		agents:          agents,
		monitor:         monitor.Nop{},
		shutdownTimeout: 10 * time.Second,
	}
}

// SetMonitor sets the observer that receives every processed turn.
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	if m != nil {
		g.monitor = m
	}
}

// SetShutdownTimeout bounds how long StopAll waits for each channel.
func (g *GatewayManager) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		g.shutdownTimeout = d
	}
}

// Register adds a channel. A channel with the same id is replaced.
func (g *GatewayManager) Register(c api.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel returns the channel registered under id.
func (g *GatewayManager) GetChannel(id string) (api.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// ChannelIDs lists the registered channels, sorted.
func (g *GatewayManager) ChannelIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.channels))
	for id := range g.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StartAll starts every registered channel, stopping at the first failure.
func (g *GatewayManager) StartAll(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, c := range g.channels {
		slog.Info("Starting channel", "channel", id)
		if err := c.Start(ctx, g); err != nil {
			return fmt.Errorf("failed to start channel %s: %w", id, err)
		}
	}
	return nil
}

// StopAll stops every channel, then the monitor. Errors are logged, not
// returned, so one stuck channel does not keep the others running.
func (g *GatewayManager) StopAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, c := range g.channels {
		slog.Info("Stopping channel", "channel", id)
		ctx, cancel := context.WithTimeout(context.Background(), g.shutdownTimeout)
		if err := c.Stop(ctx); err != nil {
			slog.Error("Error stopping channel", "channel", id, "error", err)
		}
		cancel()
	}

	if err := g.monitor.Stop(); err != nil {
		slog.Error("Error stopping monitor", "error", err)
	}
}

// ProcessMessage implements api.Processor. Turns are broadcast to the
// monitor tagged with the channel found in ctx.
func (g *GatewayManager) ProcessMessage(ctx context.Context, sessionID, userInput string) (string, error) {
	channelID := api.ChannelIDFrom(ctx)
	g.broadcast(monitor.TypeUser, channelID, sessionID, userInput)

	reply, err := g.agents.ProcessMessage(ctx, sessionID, userInput)
	if err != nil {
		g.broadcast(monitor.TypeError, channelID, sessionID, err.Error())
		return "", err
	}

	g.broadcast(monitor.TypeAssistant, channelID, sessionID, reply)
	return reply, nil
}

func (g *GatewayManager) broadcast(kind, channelID, sessionID, content string) {
	g.monitor.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: kind,
		ChannelID:   channelID,
		SessionID:   sessionID,
		Content:     content,
	})
}

func (g *GatewayManager) History(sessionID string) ([]llm.Message, bool) {
	return g.agents.History(sessionID)
}

func (g *GatewayManager) ResetSession(sessionID string) bool {
	return g.agents.ResetSession(sessionID)
}

func (g *GatewayManager) Tools() *tools.ToolRegistry {
	return g.agents.Tools()
}
