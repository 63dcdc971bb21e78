package runtime

import (
	"fmt"
	"pokedex-chat/contract"
	"pokedex-chat/errors"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

// Registry tracks every session currently eligible for broadcast.
// Sessions are keyed by connection identity, never by label: two
// participants may share the same label.
// It only holds back-references, closing connections is never its job.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]contract.Peer
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]contract.Peer)}
}

// Join adds a session. Joining twice is a programming error.
func (r *Registry) Join(peer contract.Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := peer.ID()
	if _, ok := r.sessions[id]; ok {
		return fmt.Errorf("%w: %s", errors.ErrSessionAlreadyJoined, id)
	}
	r.sessions[id] = peer
	return nil
}

// Leave removes a session and reports whether it was present.
// The receive loop and a failing broadcast may both remove the same
// session, so removing an absent one is a no-op.
func (r *Registry) Leave(peer contract.Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := peer.ID()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Snapshot copies the current membership.
// The copy is either fully before or fully after any concurrent Join/Leave.
func (r *Registry) Snapshot() []contract.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
