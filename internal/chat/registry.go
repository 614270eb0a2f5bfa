package chat

import "sync"

// Registry tracks live connections per user id. A user may hold several
// simultaneous connections (multi-device). The registry is the only
// structure mutated by concurrent session workers, so every access goes
// through the internal lock.
type Registry struct {
	mu    sync.RWMutex
	conns map[uint]map[*Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint]map[*Conn]struct{})}
}

// Register adds conn to the user's set. Registering the same connection
// twice is a no-op.
func (r *Registry) Register(userID uint, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.conns[userID] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes conn; an emptied set is dropped entirely so no
// dangling entries remain for disconnected users.
func (r *Registry) Unregister(userID uint, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// ConnectionsFor returns a point-in-time copy of the user's live
// connections. Callers must tolerate connections dying between the
// snapshot and use.
func (r *Registry) ConnectionsFor(userID uint) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}
	snapshot := make([]*Conn, 0, len(set))
	for conn := range set {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// ConnectionCount reports the number of live connections for a user.
func (r *Registry) ConnectionCount(userID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}
