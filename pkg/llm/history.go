package llm

import (
	"sync"
)

// ChatHistory is an ordered, chronological message log. When a limit is
// set the oldest messages are dropped once it is exceeded.
type ChatHistory struct {
	messages []Message
	limit    int
	mu       sync.RWMutex
}

// NewChatHistory creates a history holding at most limit messages
// (0 means unbounded).
func NewChatHistory(limit int) *ChatHistory {
	if limit < 0 {
		limit = 0
	}
	return &ChatHistory{
		messages: make([]Message, 0),
		limit:    limit,
	}
}

// Add appends msg, evicting the oldest entries past the limit.
func (h *ChatHistory) Add(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	if h.limit > 0 && len(h.messages) > h.limit {
		// copy so the evicted prefix can be collected
		kept := make([]Message, h.limit)
		copy(kept, h.messages[len(h.messages)-h.limit:])
		h.messages = kept
	}
}

// GetMessages returns a copy of the whole history.
func (h *ChatHistory) GetMessages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cp := make([]Message, len(h.messages))
	copy(cp, h.messages)
	return cp
}

// Window returns a copy of the last n messages (all of them if fewer).
func (h *ChatHistory) Window(n int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 {
		return []Message{}
	}
	start := len(h.messages) - n
	if start < 0 {
		start = 0
	}
	cp := make([]Message, len(h.messages)-start)
	copy(cp, h.messages[start:])
	return cp
}

// Len returns the number of stored messages.
func (h *ChatHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clear drops every message.
func (h *ChatHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = make([]Message, 0)
}
