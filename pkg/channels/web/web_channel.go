package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"agentapi/pkg/api"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChannelID tags requests served by this channel.
const ChannelID = "web"

type WebConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"` // Default: 3002
}

// WebChannel serves the HTTP and websocket API.
type WebChannel struct {
	config   WebConfig
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

func NewWebChannel(cfg WebConfig) *WebChannel {
	return &WebChannel{config: cfg}
}

func (c *WebChannel) ID() string {
	return ChannelID
}

// Addr returns the bound address once started.
func (c *WebChannel) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

// Start binds the port and serves in the background.
func (c *WebChannel) Start(ctx context.Context, b api.Backend) error {
	addr := net.JoinHostPort(c.config.Host, fmt.Sprint(c.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	c.mu.Lock()
	c.listener = ln
	c.server = &http.Server{
		Handler:           NewHandler(b),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	server := c.server
	c.mu.Unlock()

	slog.Info("Web API listening", "addr", ln.Addr().String())

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Web API server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires, then closes.
func (c *WebChannel) Stop(ctx context.Context) error {
	c.mu.Lock()
	server := c.server
	c.mu.Unlock()
	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		server.Close()
		return err
	}
	return nil
}
