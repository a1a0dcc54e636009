// Package hub tracks connected WebSocket sessions and implements bus.Bus.
// Broadcast events go to every session; targeted events go only to the
// sessions registered under the target user id.
package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/bus"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

// Hub is the session registry. A user may hold several sessions (tabs);
// routed delivery hits all of them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{sessions: make(map[*Session]struct{})}
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		close(s.send)
	}
	h.mu.Unlock()
}

// Publish delivers e to the matching sessions. Delivery never blocks: a
// session whose send buffer is full is dropped, the same as a disconnect.
func (h *Hub) Publish(ctx context.Context, e bus.Event) {
	frame, err := json.Marshal(e)
	if err != nil {
		logger.Error(ctx, "Hub marshal event failed", "error", err, "event", e.Name)
		return
	}

	h.mu.RLock()
	var stale []*Session
	for s := range h.sessions {
		if e.TargetUserID != "" && s.userID != e.TargetUserID {
			continue
		}
		select {
		case s.send <- frame:
		default:
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		logger.Warn(ctx, "Dropping slow session", "user_id", s.userID)
		h.remove(s)
	}
}

// Len returns the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
