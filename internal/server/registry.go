package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

// connection is one live transport endpoint owned by an authenticated user.
type connection struct {
	id       string
	userID   int64
	out      chan protocol.Frame
	openedAt time.Time
}

// Registry is the authoritative index of live connections. It answers both
// directions: which connections a user currently owns, and which user owns
// a given connection. All mutations are atomic with the first/last flags
// they report.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*connection
	byUser map[int64]map[string]*connection
}

// NewRegistry initializes an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*connection),
		byUser: make(map[int64]map[string]*connection),
	}
}

// Register admits a new connection for the user and returns its assigned
// connection ID, reporting whether it is the user's first live connection.
func (r *Registry) Register(userID int64, out chan protocol.Frame) (string, bool) {
	conn := &connection{
		id:       uuid.NewString(),
		userID:   userID,
		out:      out,
		openedAt: time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]*connection)
		r.byUser[userID] = conns
	}
	first := len(conns) == 0
	conns[conn.id] = conn
	r.byConn[conn.id] = conn
	return conn.id, first
}

// Deregister removes the connection and reports its owner along with
// whether it was the owner's last live connection. Unknown IDs are a
// harmless no-op.
func (r *Registry) Deregister(connID string) (int64, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byConn[connID]
	if !ok {
		return 0, false, false
	}
	delete(r.byConn, connID)

	conns := r.byUser[conn.userID]
	delete(conns, connID)
	wasLast := len(conns) == 0
	if wasLast {
		delete(r.byUser, conn.userID)
	}
	return conn.userID, wasLast, true
}

// UserOf resolves the owner of a connection.
func (r *Registry) UserOf(connID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byConn[connID]
	if !ok {
		return 0, false
	}
	return conn.userID, true
}

// ConnectionsOf returns a snapshot of the user's live connection IDs.
func (r *Registry) ConnectionsOf(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

// Send enqueues a frame to a single connection without blocking. It
// reports false when the connection is gone or its queue is full.
func (r *Registry) Send(connID string, frame protocol.Frame) bool {
	r.mu.RLock()
	conn, ok := r.byConn[connID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case conn.out <- frame:
		return true
	default:
		return false
	}
}

// SendToUser enqueues a frame to every live connection of the user and
// returns how many accepted it.
func (r *Registry) SendToUser(userID int64, frame protocol.Frame) int {
	r.mu.RLock()
	conns := r.byUser[userID]
	targets := make([]*connection, 0, len(conns))
	for _, conn := range conns {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	sent := 0
	for _, conn := range targets {
		select {
		case conn.out <- frame:
			sent++
		default:
		}
	}
	return sent
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
