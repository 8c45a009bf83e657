package realtime

import (
	"sync"

	"dealdesk/internal/models"
)

type identityListener struct {
	mu     sync.Mutex
	cb     func(*models.Identity)
	closed bool
}

func (l *identityListener) deliver(identity *models.Identity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.cb(identity)
}

// IdentityHub tells every open page of a browser session that the signed-in
// identity changed. Sessions are keyed by the session cookie id.
type IdentityHub struct {
	mu       sync.RWMutex
	sessions map[string]map[*identityListener]struct{}
}

func NewIdentityHub() *IdentityHub {
	return &IdentityHub{
		sessions: make(map[string]map[*identityListener]struct{}),
	}
}

// OnIdentityChange calls cb with current right away and then on every
// Publish for the session. Calls to one cb never overlap. The returned func
// unregisters; after it returns cb is not called again.
func (h *IdentityHub) OnIdentityChange(sessionID string, current *models.Identity, cb func(*models.Identity)) func() {
	l := &identityListener{cb: cb}

	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*identityListener]struct{})
	}
	h.sessions[sessionID][l] = struct{}{}
	h.mu.Unlock()

	l.deliver(current)

	return func() {
		h.mu.Lock()
		if ls, ok := h.sessions[sessionID]; ok {
			delete(ls, l)
			if len(ls) == 0 {
				delete(h.sessions, sessionID)
			}
		}
		h.mu.Unlock()

		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
	}
}

// Publish returns the number of pages notified.
func (h *IdentityHub) Publish(sessionID string, identity *models.Identity) int {
	h.mu.RLock()
	listeners := make([]*identityListener, 0, len(h.sessions[sessionID]))
	for l := range h.sessions[sessionID] {
		listeners = append(listeners, l)
	}
	h.mu.RUnlock()

	for _, l := range listeners {
		l.deliver(identity)
	}
	return len(listeners)
}
