package realtime

import "sync"

// ConnectionRegistry tracks which authenticated user owns which live
// connection(s). Multiple connections per user are supported
// (multi-device). Purely in-process: rebuilt from nothing on restart,
// reconnecting clients re-register.
//
// Safe for concurrent register/unregister/lookup from arbitrary
// goroutines; lookups never block on network I/O.
type ConnectionRegistry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client // userID → connID → client
	byConn map[string]*Client
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byUser: make(map[string]map[string]*Client),
		byConn: make(map[string]*Client),
	}
}

// Register adds an authenticated connection.
func (r *ConnectionRegistry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[c.userID] == nil {
		r.byUser[c.userID] = make(map[string]*Client)
	}
	r.byUser[c.userID][c.connID] = c
	r.byConn[c.connID] = c
}

// Unregister removes a connection by id. Unknown ids are a no-op.
func (r *ConnectionRegistry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if conns := r.byUser[c.userID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, c.userID)
		}
	}
}

// IsOnline reports whether the user has at least one live connection.
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// ConnectionsFor returns the user's connection ids.
func (r *ConnectionRegistry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byUser[userID]))
	for id := range r.byUser[userID] {
		ids = append(ids, id)
	}
	return ids
}

// clientsFor snapshots the user's live clients for fanout.
func (r *ConnectionRegistry) clientsFor(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]*Client, 0, len(r.byUser[userID]))
	for _, c := range r.byUser[userID] {
		clients = append(clients, c)
	}
	return clients
}
