package gateway

import (
	"context"
	"fmt"
	"time"

	"agentapi/pkg/agent"
	"agentapi/pkg/api"
	"agentapi/pkg/config"
	"agentapi/pkg/monitor"
)

// GatewayBuilder assembles a GatewayManager from pre-built parts and starts
// it.
type GatewayBuilder struct {
	agents       *agent.Manager
	monitor      monitor.Monitor
	systemConfig *config.SystemConfig
	channels     []api.Channel
	registrars   []func(*GatewayManager)
}

// NewGatewayBuilder creates an empty builder.
func NewGatewayBuilder() *GatewayBuilder {
	return &GatewayBuilder{}
}

// WithAgentManager sets the manager every message is routed to.
func (b *GatewayBuilder) WithAgentManager(m *agent.Manager) *GatewayBuilder {
	b.agents = m
	return b
}

// WithMonitor injects a monitor; Build starts it.
func (b *GatewayBuilder) WithMonitor(m monitor.Monitor) *GatewayBuilder {
	b.monitor = m
	return b
}

// WithSystemConfig applies engine-level parameters such as the shutdown
// timeout.
func (b *GatewayBuilder) WithSystemConfig(cfg *config.SystemConfig) *GatewayBuilder {
	b.systemConfig = cfg
	return b
}

// WithChannel adds pre-built channels.
func (b *GatewayBuilder) WithChannel(channels ...api.Channel) *GatewayBuilder {
	b.channels = append(b.channels, channels...)
	return b
}

// WithRegistrar runs fn against the manager before channels start. It is
// how config-driven channel loading plugs in.
func (b *GatewayBuilder) WithRegistrar(fn func(*GatewayManager)) *GatewayBuilder {
	b.registrars = append(b.registrars, fn)
	return b
}

// Build wires everything and starts the monitor and all channels.
func (b *GatewayBuilder) Build(ctx context.Context) (*GatewayManager, error) {
	if b.agents == nil {
		return nil, fmt.Errorf("gateway needs an agent manager")
	}
	gw := NewGatewayManager(b.agents)

	if b.systemConfig != nil {
		gw.SetShutdownTimeout(time.Duration(b.systemConfig.ShutdownTimeoutMs) * time.Millisecond)
	}

	if b.monitor != nil {
		gw.SetMonitor(b.monitor)
		if err := b.monitor.Start(); err != nil {
			return nil, fmt.Errorf("failed to start monitor: %w", err)
		}
	}

	for _, c := range b.channels {
		gw.Register(c)
	}
	for _, fn := range b.registrars {
		fn(gw)
	}

	if err := gw.StartAll(ctx); err != nil {
		gw.StopAll()
		return nil, fmt.Errorf("failed to start channels: %w", err)
	}
	return gw, nil
}
