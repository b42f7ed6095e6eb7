package app

import (
	"sort"
	"sync"
	"time"
)

// ClientSession describes one connected MCP client of a view.
type ClientSession struct {
	ID           string    `json:"id"`
	Client       string    `json:"client"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionRegistry tracks connected MCP client sessions (stdio, Streamable HTTP).
// Sessions are the targets for state-change notifications.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*ClientSession
	onChange func(count int)
}

// NewSessionRegistry creates an empty registry. onChange, if non-nil, is
// called with the new session count after every add or remove.
func NewSessionRegistry(onChange func(count int)) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*ClientSession),
		onChange: onChange,
	}
}

// Register records a session. Registering a known ID updates its client name.
func (r *SessionRegistry) Register(sessionID, client string) {
	now := time.Now()
	r.mu.Lock()
	if s, ok := r.sessions[sessionID]; ok {
		s.Client = client
		s.LastActivity = now
	} else {
		r.sessions[sessionID] = &ClientSession{ID: sessionID, Client: client, ConnectedAt: now, LastActivity: now}
	}
	n := len(r.sessions)
	r.mu.Unlock()
	r.changed(n)
}

// Touch records activity for a known session (call on each tool invocation).
func (r *SessionRegistry) Touch(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.LastActivity = time.Now()
	}
}

// Remove unregisters a session (e.g. on disconnect).
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	n := len(r.sessions)
	r.mu.Unlock()
	if ok {
		r.changed(n)
	}
}

// Has reports whether the session is registered.
func (r *SessionRegistry) Has(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// Sessions returns copies of all sessions, oldest first.
func (r *SessionRegistry) Sessions() []ClientSession {
	r.mu.RLock()
	out := make([]ClientSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// IDs returns the registered session IDs in sorted order.
func (r *SessionRegistry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Count returns the number of connected sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRegistry) changed(n int) {
	if r.onChange != nil {
		r.onChange(n)
	}
}
