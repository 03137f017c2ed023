package realtime

import "sync"

// Registry is the authoritative in-memory map from user IDs to their live
// connections. A user may hold several connections at once (multiple tabs or
// devices). All methods are safe for concurrent use from independent
// connection goroutines; a single mutex guards both indexes so a lookup never
// observes a half-updated entry.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Client]struct{}
	byConn map[*Client]uint
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[uint]map[*Client]struct{}),
		byConn: make(map[*Client]uint),
	}
}

// Register associates the connection with userID and reports whether it is
// the user's first live connection.
func (r *Registry) Register(userID uint, c *Client) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.byUser[userID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		r.byUser[userID] = conns
	}
	conns[c] = struct{}{}
	r.byConn[c] = userID

	return len(conns) == 1
}

// Unregister removes the connection from whatever user it was registered
// under. It reports the user, whether this was the user's last connection,
// and whether the connection was registered at all (a connection that closed
// before authenticating was not).
func (r *Registry) Unregister(c *Client) (userID uint, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.byConn[c]
	if !ok {
		return 0, false, false
	}
	delete(r.byConn, c)

	conns := r.byUser[userID]
	delete(conns, c)
	if len(conns) == 0 {
		delete(r.byUser, userID)
		last = true
	}
	return userID, last, true
}

// Lookup returns a snapshot of the user's live connections; possibly empty,
// never nil entries.
func (r *Registry) Lookup(userID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	out := make([]*Client, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	return out
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Snapshot returns every registered connection across all users, for global
// broadcasts.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.byConn))
	for c := range r.byConn {
		out = append(out, c)
	}
	return out
}

// ConnectionCount returns the total number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
