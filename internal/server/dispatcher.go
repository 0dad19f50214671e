package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/logger"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/metrics"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage"
)

// Dispatcher validates, persists, and fans out room messages. A per-room
// mutex serializes persistence with broadcast initiation, so subscribers
// observe messages in store-assigned ID order. Delivery-status rows are
// written after the broadcast and never roll a dispatched message back.
type Dispatcher struct {
	store    storage.Store
	registry *Registry
	rooms    *RoomRouter

	mu        sync.Mutex
	roomLocks map[int64]*sync.Mutex
}

// NewDispatcher wires a dispatcher over the given collaborators.
func NewDispatcher(store storage.Store, registry *Registry, rooms *RoomRouter) *Dispatcher {
	return &Dispatcher{
		store:     store,
		registry:  registry,
		rooms:     rooms,
		roomLocks: make(map[int64]*sync.Mutex),
	}
}

// Send runs the full dispatch pipeline for one message. Validation
// short-circuits in a fixed order: authentication, content, room
// reference, room membership, reply target. On success the message is
// persisted, broadcast to the room's live subscribers, and recorded as
// delivered for every other durable participant.
func (d *Dispatcher) Send(ctx context.Context, connID, roomRef, content, replyRef string) (*storage.Message, error) {
	senderID, ok := d.registry.UserOf(connID)
	if !ok {
		return nil, ErrUnauthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	roomID, err := parseID(roomRef)
	if err != nil {
		return nil, ErrInvalidRoom
	}
	member, err := d.store.IsParticipant(ctx, roomID, senderID)
	if err != nil {
		return nil, fmt.Errorf("check membership of %d in %d: %w", senderID, roomID, err)
	}
	if !member {
		return nil, ErrForbidden
	}
	replyTo, err := d.resolveReplyTarget(ctx, roomID, replyRef)
	if err != nil {
		return nil, err
	}

	sender, err := d.store.GetUser(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("load sender %d: %w", senderID, err)
	}

	msg := &storage.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		Sender:   sender,
		ReplyTo:  replyTo,
	}
	if replyTo != nil {
		msg.ReplyToID = &replyTo.ID
	}

	// Insert and broadcast initiation run under the room's dispatch lock:
	// concurrent sends to one room serialize here, so enqueue order on
	// every subscriber queue matches assigned message IDs.
	lock := d.roomLock(roomID)
	lock.Lock()
	if err := d.store.InsertMessage(ctx, msg); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("persist message: %w", err)
	}
	frame, ferr := protocol.NewFrame(protocol.EventReceiveMessage, protocol.ReceiveMessage{Message: wireMessage(msg)})
	if ferr == nil {
		for _, subscriber := range d.rooms.SubscribersOf(roomID) {
			d.registry.Send(subscriber, frame)
		}
	}
	lock.Unlock()

	if ferr != nil {
		logger.Log.Error("encode message event", "message", msg.ID, "err", ferr)
	}

	metrics.MessagesDispatched.Inc()
	d.recordDelivery(ctx, msg)
	return msg, nil
}

// resolveReplyTarget validates an optional reply reference. The target
// must exist and belong to the same room; reply previews are one level
// deep, so the target's own reply link is not followed.
func (d *Dispatcher) resolveReplyTarget(ctx context.Context, roomID int64, replyRef string) (*storage.Message, error) {
	if replyRef == "" {
		return nil, nil
	}
	replyID, err := parseID(replyRef)
	if err != nil {
		return nil, ErrInvalidReplyTarget
	}
	target, err := d.store.GetMessage(ctx, replyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidReplyTarget
		}
		return nil, fmt.Errorf("load reply target %d: %w", replyID, err)
	}
	if target.RoomID != roomID {
		return nil, ErrInvalidReplyTarget
	}
	return target, nil
}

// recordDelivery writes one status row per durable participant other
// than the sender. Failures are logged and metered but never unwind the
// already-broadcast message. Rows are recorded as delivered regardless of
// live reach; per-recipient acknowledgement is not tracked.
func (d *Dispatcher) recordDelivery(ctx context.Context, msg *storage.Message) {
	recipients, err := d.store.ParticipantsOf(ctx, msg.RoomID, msg.SenderID)
	if err != nil {
		logger.Log.Error("load delivery recipients", "message", msg.ID, "room", msg.RoomID, "err", err)
		metrics.DeliveryStatusFailures.Inc()
		return
	}
	now := time.Now().UTC()
	for _, recipientID := range recipients {
		if err := d.store.UpsertDeliveryStatus(ctx, msg.ID, recipientID, true, now); err != nil {
			logger.Log.Error("write delivery status", "message", msg.ID, "recipient", recipientID, "err", err)
			metrics.DeliveryStatusFailures.Inc()
		}
	}
}

func (d *Dispatcher) roomLock(roomID int64) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, ok := d.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		d.roomLocks[roomID] = lock
	}
	return lock
}

// wireMessage converts a hydrated stored message to its wire form.
func wireMessage(msg *storage.Message) protocol.ChatMessage {
	wire := protocol.ChatMessage{
		ID:       msg.ID,
		RoomID:   msg.RoomID,
		SenderID: msg.SenderID,
		Content:  msg.Content,
		SentAt:   msg.SentAt,
		EditedAt: msg.EditedAt,
	}
	if msg.Sender != nil {
		wire.SenderUsername = msg.Sender.Username
		wire.SenderDisplayName = msg.Sender.DisplayName
	}
	if msg.ReplyTo != nil {
		preview := &protocol.ReplyPreview{
			ID:       msg.ReplyTo.ID,
			SenderID: msg.ReplyTo.SenderID,
			Content:  msg.ReplyTo.Content,
		}
		if msg.ReplyTo.Sender != nil {
			preview.SenderUsername = msg.ReplyTo.Sender.Username
		}
		wire.ReplyTo = preview
	}
	return wire
}
