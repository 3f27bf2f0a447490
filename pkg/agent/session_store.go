package agent

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"agentapi/pkg/llm"
)

// SessionStore keeps one ConversationAgent per session id so that
// concurrent conversations never share memory.
type SessionStore struct {
	client llm.LLMClient
	opts   Options
	agents map[string]*ConversationAgent
	mu     sync.RWMutex
}

// NewSessionStore creates an empty store. Every agent it creates talks to
// client with opts.
func NewSessionStore(client llm.LLMClient, opts Options) *SessionStore {
	return &SessionStore{
		client: client,
		opts:   opts,
		agents: make(map[string]*ConversationAgent),
	}
}

// Get returns the agent of sessionID, creating it on first use.
func (s *SessionStore) Get(sessionID string) *ConversationAgent {
	s.mu.RLock()
	a, ok := s.agents[sessionID]
	s.mu.RUnlock()
	if ok {
		return a
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double check under lock
	if a, ok = s.agents[sessionID]; ok {
		return a
	}
	a = NewConversationAgent(s.client, s.opts)
	s.agents[sessionID] = a
	slog.Debug("Session created", "session_id", sessionID)
	return a
}

// Lookup returns the agent of sessionID without creating one.
func (s *SessionStore) Lookup(sessionID string) (*ConversationAgent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[sessionID]
	return a, ok
}

// Delete forgets sessionID. It reports whether the session existed.
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.agents[sessionID]
	delete(s.agents, sessionID)
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// IDs returns the known session ids, sorted.
func (s *SessionStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep evicts sessions idle for longer than maxIdle and returns how many
// were removed. A session in the middle of a turn is never evicted.
func (s *SessionStore) Sweep(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, a := range s.agents {
		if !a.LastUsed().Before(cutoff) || !a.mu.TryLock() {
			continue
		}
		delete(s.agents, id)
		a.mu.Unlock()
		removed++
	}
	return removed
}

// StartJanitor sweeps idle sessions every interval until ctx is done.
func (s *SessionStore) StartJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(maxIdle); n > 0 {
					slog.Info("Evicted idle sessions", "count", n, "remaining", s.Len())
				}
			}
		}
	}()
}
