package server

import (
	"context"
	"errors"
	"testing"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage"
)

func seedUser(t *testing.T, store *memStore, username string) int64 {
	t.Helper()
	user := &storage.User{Username: username, DisplayName: username, PasswordHash: "x"}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user.ID
}

func decodeStatusChange(t *testing.T, frame protocol.Frame) protocol.ContactStatusChanged {
	t.Helper()
	if frame.Event != protocol.EventContactStatusChanged {
		t.Fatalf("event = %q, want %q", frame.Event, protocol.EventContactStatusChanged)
	}
	var payload protocol.ContactStatusChanged
	if err := frame.DecodeData(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}

// TestPresenceOnlineOnlyOnFirstConnection verifies that contacts hear
// about a user exactly once no matter how many connections the user opens.
func TestPresenceOnlineOnlyOnFirstConnection(t *testing.T) {
	store := newMemStore()
	registry := NewRegistry()
	tracker := NewPresenceTracker(store, registry)
	ctx := context.Background()

	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	if err := store.AddContact(ctx, alice, bob); err != nil {
		t.Fatalf("add contact: %v", err)
	}

	bobOut := newOutbox()
	registry.Register(bob, bobOut)

	_, first := registry.Register(alice, newOutbox())
	tracker.HandleConnected(ctx, alice, first)

	_, second := registry.Register(alice, newOutbox())
	tracker.HandleConnected(ctx, alice, second)

	if got := len(bobOut); got != 1 {
		t.Fatalf("contact received %d presence events, want 1", got)
	}
	payload := decodeStatusChange(t, <-bobOut)
	if payload.UserID != alice || !payload.Online {
		t.Fatalf("payload = %+v, want alice online", payload)
	}
	if user, _ := store.userSnapshot(alice); !user.Online {
		t.Fatalf("online flag not persisted")
	}
}

// TestPresenceOfflineOnlyOnLastConnection verifies the symmetric offline
// transition and the persisted last-seen timestamp.
func TestPresenceOfflineOnlyOnLastConnection(t *testing.T) {
	store := newMemStore()
	registry := NewRegistry()
	tracker := NewPresenceTracker(store, registry)
	ctx := context.Background()

	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	if err := store.AddContact(ctx, bob, alice); err != nil {
		t.Fatalf("add contact: %v", err)
	}

	bobOut := newOutbox()
	registry.Register(bob, bobOut)

	conn1, first := registry.Register(alice, newOutbox())
	tracker.HandleConnected(ctx, alice, first)
	conn2, _ := registry.Register(alice, newOutbox())
	drainFrames(bobOut)

	_, wasLast, _ := registry.Deregister(conn1)
	tracker.HandleDisconnected(ctx, alice, wasLast)
	if got := len(bobOut); got != 0 {
		t.Fatalf("offline reported with a connection still live")
	}

	_, wasLast, _ = registry.Deregister(conn2)
	tracker.HandleDisconnected(ctx, alice, wasLast)
	if got := len(bobOut); got != 1 {
		t.Fatalf("contact received %d offline events, want 1", got)
	}
	payload := decodeStatusChange(t, <-bobOut)
	if payload.Online {
		t.Fatalf("payload reports online after last disconnect")
	}
	if payload.LastSeenAt.IsZero() {
		t.Fatalf("lastSeenAt missing from offline event")
	}
	user, _ := store.userSnapshot(alice)
	if user.Online || user.LastSeenAt.IsZero() {
		t.Fatalf("persisted state = online=%t lastSeen=%v, want offline with timestamp", user.Online, user.LastSeenAt)
	}
}

// TestPresenceSurvivesStoreFailure verifies that a failing durable write
// is logged but contacts are still notified.
func TestPresenceSurvivesStoreFailure(t *testing.T) {
	store := newMemStore()
	registry := NewRegistry()
	tracker := NewPresenceTracker(store, registry)
	ctx := context.Background()

	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	if err := store.AddContact(ctx, alice, bob); err != nil {
		t.Fatalf("add contact: %v", err)
	}
	bobOut := newOutbox()
	registry.Register(bob, bobOut)

	store.failWith("SetOnlineStatus", errors.New("store down"))
	_, first := registry.Register(alice, newOutbox())
	tracker.HandleConnected(ctx, alice, first)

	if got := len(bobOut); got != 1 {
		t.Fatalf("contact received %d events despite store failure, want 1", got)
	}
}

// TestPresenceSkipsOfflineContacts verifies that contacts without live
// connections are simply skipped.
func TestPresenceSkipsOfflineContacts(t *testing.T) {
	store := newMemStore()
	registry := NewRegistry()
	tracker := NewPresenceTracker(store, registry)
	ctx := context.Background()

	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	if err := store.AddContact(ctx, alice, bob); err != nil {
		t.Fatalf("add contact: %v", err)
	}

	_, first := registry.Register(alice, newOutbox())
	tracker.HandleConnected(ctx, alice, first)
	// No live connection for bob; reaching here without blocking is the test.
}

func drainFrames(ch chan protocol.Frame) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
