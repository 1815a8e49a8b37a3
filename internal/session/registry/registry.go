// Package registry implements the session registry (C10): an ordered
// list of sessions plus a selection cursor, grounded on
// original_source/src/session/manager.rs's SessionManager.
package registry

import (
	"sync"

	"github.com/amuxd/amuxd/internal/session"
)

// Registry owns the ordered collection of live sessions and tracks which
// one is selected (the locally "focused" session for UI-adjacent
// callers; the core itself never reads Selected for routing, which is
// always done by local_id — see internal/orchestrator/dispatch).
type Registry struct {
	mu       sync.RWMutex
	sessions []*session.Session
	selected int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Add appends s and selects it, mirroring add_session's "select the new
// session" rule.
func (r *Registry) Add(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	r.selected = len(r.sessions) - 1
}

// RemoveByID removes the session with the given local id. If it was the
// selected session (or came before it), the selection index is clamped
// to the last valid index, matching remove_selected's adjustment rule.
func (r *Registry) RemoveByID(localID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(localID)
	if idx < 0 {
		return false
	}

	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)

	if len(r.sessions) == 0 {
		r.selected = 0
		return true
	}
	if r.selected >= len(r.sessions) {
		r.selected = len(r.sessions) - 1
	}
	return true
}

func (r *Registry) indexOf(localID string) int {
	for i, s := range r.sessions {
		if s.LocalID == localID {
			return i
		}
	}
	return -1
}

// GetByID returns the session with the given local id, if any.
func (r *Registry) GetByID(localID string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexOf(localID); idx >= 0 {
		return r.sessions[idx], true
	}
	return nil, false
}

// All returns a snapshot slice of every session in registry order.
func (r *Registry) All() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session.Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Selected returns the currently selected session, if any.
func (r *Registry) Selected() (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selected < 0 || r.selected >= len(r.sessions) {
		return nil, false
	}
	return r.sessions[r.selected], true
}

// SelectIndex sets the selection cursor, clamped to the valid range.
func (r *Registry) SelectIndex(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		r.selected = 0
		return
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.sessions) {
		idx = len(r.sessions) - 1
	}
	r.selected = idx
}

// SelectNext/SelectPrev cycle the selection cursor, wrapping.
func (r *Registry) SelectNext() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return
	}
	r.selected = (r.selected + 1) % len(r.sessions)
}

func (r *Registry) SelectPrev() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return
	}
	r.selected = (r.selected - 1 + len(r.sessions)) % len(r.sessions)
}

// SelectByID selects the session with the given local id, if present.
func (r *Registry) SelectByID(localID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(localID); idx >= 0 {
		r.selected = idx
		return true
	}
	return false
}
