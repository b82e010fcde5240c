package editor

import (
	"sort"
	"sync"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/document"
)

type session struct {
	doc     *document.Document
	dirty   bool
	pending []models.EditCommand
}

// Registry maps session ids to live documents. The map is guarded; the
// documents themselves are not.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

func (r *Registry) Get(sessionID string) (*document.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return s.doc, true
}

// Put registers doc, replacing any document the session had. History
// entries still waiting to be persisted stay queued.
func (r *Registry) Put(doc *document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := &session{doc: doc}
	if prev, ok := r.sessions[doc.SessionID]; ok {
		next.dirty = prev.dirty
		next.pending = prev.pending
	}
	r.sessions[doc.SessionID] = next
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions lists the ids of every live session in sorted order.
func (r *Registry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dirty reports whether the session has changes the store has not seen.
func (r *Registry) Dirty(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	return ok && s.dirty
}

// queue adds history entries awaiting persistence and returns everything
// that is pending.
func (r *Registry) queue(sessionID string, entries []models.EditCommand) []models.EditCommand {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return entries
	}
	s.pending = append(s.pending, entries...)
	out := make([]models.EditCommand, len(s.pending))
	copy(out, s.pending)
	return out
}

func (r *Registry) markSaved(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		s.dirty = false
		s.pending = nil
	}
}

func (r *Registry) markDirty(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		s.dirty = true
	}
}

// SessionLocks hands out one mutex per session so callers can serialize
// mutations of the same document.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the session is free and returns the matching unlock.
func (l *SessionLocks) Lock(sessionID string) func() {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
