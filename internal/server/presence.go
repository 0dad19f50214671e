package server

import (
	"context"
	"time"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/logger"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/metrics"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage"
)

// PresenceTracker turns connection lifecycle changes into durable online
// state and contact notifications. A user with several live connections is
// online once: transitions fire only when the connection count crosses
// zero, which the registry reports atomically with each (de)registration.
type PresenceTracker struct {
	store    storage.Store
	registry *Registry
}

// NewPresenceTracker wires a tracker over the given collaborators.
func NewPresenceTracker(store storage.Store, registry *Registry) *PresenceTracker {
	return &PresenceTracker{store: store, registry: registry}
}

// HandleConnected records the user as online and notifies their contacts,
// but only when this is the user's first live connection.
func (p *PresenceTracker) HandleConnected(ctx context.Context, userID int64, first bool) {
	if !first {
		return
	}
	p.transition(ctx, userID, true)
}

// HandleDisconnected records the user as offline and notifies their
// contacts, but only when their last live connection is gone. Store
// failures are logged and never block the caller's cleanup.
func (p *PresenceTracker) HandleDisconnected(ctx context.Context, userID int64, wasLast bool) {
	if !wasLast {
		return
	}
	p.transition(ctx, userID, false)
}

func (p *PresenceTracker) transition(ctx context.Context, userID int64, online bool) {
	state := "offline"
	if online {
		state = "online"
	}
	now := time.Now().UTC()

	if err := p.store.SetOnlineStatus(ctx, userID, online, now); err != nil {
		logger.Log.Error("persist presence", "user", userID, "state", state, "err", err)
	}
	metrics.PresenceTransitions.WithLabelValues(state).Inc()
	logger.Log.Info("presence changed", "user", userID, "state", state)

	p.notifyContacts(ctx, userID, online, now)
}

// notifyContacts fans the transition out to each contact's live
// connections. Contacts without live connections are skipped; a full
// queue on one recipient never affects the others.
func (p *PresenceTracker) notifyContacts(ctx context.Context, userID int64, online bool, at time.Time) {
	contacts, err := p.store.ContactsOf(ctx, userID)
	if err != nil {
		logger.Log.Error("load contacts", "user", userID, "err", err)
		return
	}
	frame, err := protocol.NewFrame(protocol.EventContactStatusChanged, protocol.ContactStatusChanged{
		UserID:     userID,
		Online:     online,
		LastSeenAt: at,
	})
	if err != nil {
		logger.Log.Error("encode presence event", "user", userID, "err", err)
		return
	}
	for _, contactID := range contacts {
		p.registry.SendToUser(contactID, frame)
	}
}
