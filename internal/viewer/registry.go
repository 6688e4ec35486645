package viewer

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the open viewer sessions of a delivery-api instance.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a loaded session and returns its opaque ID.
func (r *Registry) Add(s *Session) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown viewer session %s", id)
	}
	return s, nil
}

// Close releases the session's document bytes and forgets the session.
// Closing an unknown ID is a no-op.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}
