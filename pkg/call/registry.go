package call

import (
	"context"
	"sync"

	"github.com/callscreen-ai/callscreen/pkg/store"
)

// Registry maps account identities to their active call session. At most one
// live session exists per identity: creating a session for an identity that
// already has one replaces it, and the displaced session is released so its
// handles cannot leak.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	wg       sync.WaitGroup
}

type registryEntry struct {
	session *Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*registryEntry)}
}

// Create registers and returns a new session for the account.
func (r *Registry) Create(account store.Account, fromNumber string) *Session {
	s := &Session{
		Identity:   account.Identity(),
		Account:    account,
		FromNumber: fromNumber,
		registry:   r,
	}
	entry := &registryEntry{session: s}
	s.entry = entry

	r.mu.Lock()
	old := r.sessions[s.Identity]
	r.sessions[s.Identity] = entry
	r.wg.Add(1)
	r.mu.Unlock()

	if old != nil {
		old.session.Release()
	}
	return s
}

// Get returns the active session for the identity, if any.
func (r *Registry) Get(identity string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[identity]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// remove deletes the identity's slot only if it still holds this entry, so a
// slow teardown of a replaced session cannot evict its successor. Called from
// Session.Release, which guarantees exactly one invocation per session.
func (r *Registry) remove(identity string, entry *registryEntry) {
	if r == nil || entry == nil {
		return
	}
	r.mu.Lock()
	if r.sessions[identity] == entry {
		delete(r.sessions, identity)
	}
	r.mu.Unlock()
	r.wg.Done()
}

func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ReleaseAll tears down every active session. Used when the grace period
// expires during shutdown.
func (r *Registry) ReleaseAll() (released int) {
	if r == nil {
		return 0
	}
	var sessions []*Session
	r.mu.Lock()
	for _, entry := range r.sessions {
		sessions = append(sessions, entry.session)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Release()
		released++
	}
	return released
}

// Wait blocks until every registered session has been released, or the
// context expires. Returns false on expiry.
func (r *Registry) Wait(ctx context.Context) bool {
	if r == nil {
		return true
	}
	if ctx == nil {
		r.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
