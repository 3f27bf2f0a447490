package api

import (
	"context"

	"agentapi/pkg/llm"
	"agentapi/pkg/tools"
)

// Processor turns user input into an assistant reply within a session.
// The gateway implements it.
type Processor interface {
	ProcessMessage(ctx context.Context, sessionID, userInput string) (string, error)
}

// Backend is everything a channel may ask of the core: turn processing plus
// session and tool inspection.
type Backend interface {
	Processor
	History(sessionID string) ([]llm.Message, bool)
	ResetSession(sessionID string) bool
	Tools() *tools.ToolRegistry
}

// Channel is the lifecycle interface of a communication front end.
type Channel interface {
	ID() string
	// Start begins serving in the background and returns once ready.
	Start(ctx context.Context, b Backend) error
	Stop(ctx context.Context) error
}

type channelKey struct{}

// WithChannelID tags ctx with the channel a message arrived on.
func WithChannelID(ctx context.Context, channelID string) context.Context {
	return context.WithValue(ctx, channelKey{}, channelID)
}

// ChannelIDFrom returns the channel id stored in ctx, or "".
func ChannelIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(channelKey{}).(string)
	return id
}
