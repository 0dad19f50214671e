package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage"
)

// RoomRouter tracks which live connections subscribe to which rooms and
// serves fan-out snapshots. Durable membership is re-validated against the
// store on every subscribe; store lookups never run under the router lock.
type RoomRouter struct {
	store    storage.Store
	registry *Registry

	mu     sync.RWMutex
	rooms  map[int64]map[string]struct{}
	byConn map[string]map[int64]struct{}
}

// NewRoomRouter initializes an empty router over the given collaborators.
func NewRoomRouter(store storage.Store, registry *Registry) *RoomRouter {
	return &RoomRouter{
		store:    store,
		registry: registry,
		rooms:    make(map[int64]map[string]struct{}),
		byConn:   make(map[string]map[int64]struct{}),
	}
}

// Subscribe admits the connection to the room's live set. The room must
// exist and the connection's owner must be a durable participant, checked
// fresh on every call. Subscribing twice is idempotent.
func (rt *RoomRouter) Subscribe(ctx context.Context, connID string, roomID int64) error {
	userID, ok := rt.registry.UserOf(connID)
	if !ok {
		return ErrUnauthenticated
	}
	if _, err := rt.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidRoom
		}
		return fmt.Errorf("load room %d: %w", roomID, err)
	}
	member, err := rt.store.IsParticipant(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("check membership of %d in %d: %w", userID, roomID, err)
	}
	if !member {
		return ErrForbidden
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	// The connection may have closed while membership was being checked.
	if _, ok := rt.registry.UserOf(connID); !ok {
		return ErrUnauthenticated
	}
	subscribers, ok := rt.rooms[roomID]
	if !ok {
		subscribers = make(map[string]struct{})
		rt.rooms[roomID] = subscribers
	}
	subscribers[connID] = struct{}{}

	joined, ok := rt.byConn[connID]
	if !ok {
		joined = make(map[int64]struct{})
		rt.byConn[connID] = joined
	}
	joined[roomID] = struct{}{}
	return nil
}

// Unsubscribe removes the connection from the room's live set and reports
// whether it was subscribed. Unknown pairs are a harmless no-op.
func (rt *RoomRouter) Unsubscribe(connID string, roomID int64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.removeLocked(connID, roomID)
}

// UnsubscribeAll removes the connection from every room it subscribes to
// and returns the affected room IDs.
func (rt *RoomRouter) UnsubscribeAll(connID string) []int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	joined := rt.byConn[connID]
	roomIDs := make([]int64, 0, len(joined))
	for roomID := range joined {
		roomIDs = append(roomIDs, roomID)
	}
	for _, roomID := range roomIDs {
		rt.removeLocked(connID, roomID)
	}
	return roomIDs
}

func (rt *RoomRouter) removeLocked(connID string, roomID int64) bool {
	subscribers, ok := rt.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := subscribers[connID]; !ok {
		return false
	}
	delete(subscribers, connID)
	if len(subscribers) == 0 {
		delete(rt.rooms, roomID)
	}

	joined := rt.byConn[connID]
	delete(joined, roomID)
	if len(joined) == 0 {
		delete(rt.byConn, connID)
	}
	return true
}

// IsSubscribed reports whether the connection is in the room's live set.
func (rt *RoomRouter) IsSubscribed(connID string, roomID int64) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	subscribers, ok := rt.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = subscribers[connID]
	return ok
}

// SubscribersOf returns a snapshot of the room's live subscriber set.
func (rt *RoomRouter) SubscribersOf(roomID int64) []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	subscribers := rt.rooms[roomID]
	ids := make([]string, 0, len(subscribers))
	for connID := range subscribers {
		ids = append(ids, connID)
	}
	return ids
}

// SubscribersExcluding returns a snapshot of the room's subscribers
// without the given connection.
func (rt *RoomRouter) SubscribersExcluding(roomID int64, exceptConnID string) []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	subscribers := rt.rooms[roomID]
	ids := make([]string, 0, len(subscribers))
	for connID := range subscribers {
		if connID != exceptConnID {
			ids = append(ids, connID)
		}
	}
	return ids
}
