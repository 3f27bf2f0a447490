package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
)

// Args carries the arguments of one tool invocation.
type Args map[string]any

// Tool is a capability the agent can call by name.
type Tool interface {
	Invoke(ctx context.Context, args Args) (any, error)
}

// ToolFunc adapts a plain function to Tool.
type ToolFunc func(ctx context.Context, args Args) (any, error)

func (f ToolFunc) Invoke(ctx context.Context, args Args) (any, error) {
	return f(ctx, args)
}

// Entry is one registered tool.
type Entry struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Schema      *jsonschema.Schema `json:"parameters,omitempty"`
	Tool        Tool               `json:"-"`
}

// ErrNotFound is matched (errors.Is) by every NotFoundError.
var ErrNotFound = errors.New("tool not registered")

// NotFoundError reports an Invoke on a name nobody registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool '%s' not registered", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ErrInvalidArgs is matched (errors.Is) by every ArgumentError.
var ErrInvalidArgs = errors.New("invalid tool arguments")

// ArgumentError reports arguments a tool cannot work with. It is the
// caller's fault, not the tool's.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid arguments: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgs
}

// ToolRegistry acts as a central inventory for all tools available to the Agent.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Entry
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Entry),
	}
}

// Register stores tool under name. A previous entry with the same name is
// replaced silently.
func (tr *ToolRegistry) Register(name string, tool Tool, description string) {
	tr.RegisterEntry(Entry{Name: name, Tool: tool, Description: description})
}

// RegisterEntry stores a fully described entry (last registration wins).
func (tr *ToolRegistry) RegisterEntry(e Entry) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tools[e.Name] = e
}

// Unregister removes a tool from the registry
func (tr *ToolRegistry) Unregister(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.tools, name)
}

// Get retrieves a tool by name
func (tr *ToolRegistry) Get(name string) (Entry, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	e, ok := tr.tools[name]
	return e, ok
}

// List returns all entries sorted by name.
func (tr *ToolRegistry) List() []Entry {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	entries := make([]Entry, 0, len(tr.tools))
	for _, e := range tr.tools {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Invoke calls the tool registered under name and returns its result
// unchanged. There is no timeout or retry beyond what ctx imposes.
func (tr *ToolRegistry) Invoke(ctx context.Context, name string, args Args) (any, error) {
	e, ok := tr.Get(name)
	if !ok || e.Tool == nil {
		return nil, &NotFoundError{Name: name}
	}
	if args == nil {
		args = Args{}
	}
	return e.Tool.Invoke(ctx, args)
}
