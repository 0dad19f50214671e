package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage"
)

// memStore is an in-memory storage.Store used to drive the server core in
// tests. Individual operations can be made to fail by name.
type memStore struct {
	mu           sync.Mutex
	users        map[int64]*storage.User
	usersByName  map[string]int64
	rooms        map[int64]*storage.Room
	participants map[int64]map[int64]struct{}
	contacts     map[int64]map[int64]struct{}
	messages     map[int64]*storage.Message
	statuses     map[int64]map[int64]*storage.MessageStatus
	failures     map[string]error
	nextUserID   int64
	nextRoomID   int64
	nextMsgID    int64
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int64]*storage.User),
		usersByName:  make(map[string]int64),
		rooms:        make(map[int64]*storage.Room),
		participants: make(map[int64]map[int64]struct{}),
		contacts:     make(map[int64]map[int64]struct{}),
		messages:     make(map[int64]*storage.Message),
		statuses:     make(map[int64]map[int64]*storage.MessageStatus),
		failures:     make(map[string]error),
	}
}

// failWith makes the named operation return err until cleared with nil.
func (m *memStore) failWith(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *memStore) failureFor(op string) error {
	return m.failures[op]
}

func (m *memStore) Close() error                      { return nil }
func (m *memStore) Migrate(ctx context.Context) error { return nil }

func (m *memStore) CreateUser(ctx context.Context, user *storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("CreateUser"); err != nil {
		return err
	}
	if _, ok := m.usersByName[user.Username]; ok {
		return fmt.Errorf("duplicate username %q", user.Username)
	}
	m.nextUserID++
	user.ID = m.nextUserID
	copied := *user
	m.users[user.ID] = &copied
	m.usersByName[user.Username] = user.ID
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id int64) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("GetUser"); err != nil {
		return nil, err
	}
	user, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("GetUserByUsername"); err != nil {
		return nil, err
	}
	id, ok := m.usersByName[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *m.users[id]
	return &copied, nil
}

func (m *memStore) SetOnlineStatus(ctx context.Context, userID int64, online bool, lastSeenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("SetOnlineStatus"); err != nil {
		return err
	}
	user, ok := m.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	user.Online = online
	user.LastSeenAt = lastSeenAt
	return nil
}

func (m *memStore) CreateRoom(ctx context.Context, room *storage.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("CreateRoom"); err != nil {
		return err
	}
	m.nextRoomID++
	room.ID = m.nextRoomID
	copied := *room
	m.rooms[room.ID] = &copied
	return nil
}

func (m *memStore) GetRoom(ctx context.Context, id int64) (*storage.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("GetRoom"); err != nil {
		return nil, err
	}
	room, ok := m.rooms[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *room
	return &copied, nil
}

func (m *memStore) AddParticipant(ctx context.Context, roomID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("AddParticipant"); err != nil {
		return err
	}
	members, ok := m.participants[roomID]
	if !ok {
		members = make(map[int64]struct{})
		m.participants[roomID] = members
	}
	members[userID] = struct{}{}
	return nil
}

func (m *memStore) IsParticipant(ctx context.Context, roomID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("IsParticipant"); err != nil {
		return false, err
	}
	_, ok := m.participants[roomID][userID]
	return ok, nil
}

func (m *memStore) ParticipantsOf(ctx context.Context, roomID, excludeUserID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("ParticipantsOf"); err != nil {
		return nil, err
	}
	var ids []int64
	for userID := range m.participants[roomID] {
		if userID != excludeUserID {
			ids = append(ids, userID)
		}
	}
	return ids, nil
}

func (m *memStore) AddContact(ctx context.Context, ownerID, contactID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("AddContact"); err != nil {
		return err
	}
	edges, ok := m.contacts[ownerID]
	if !ok {
		edges = make(map[int64]struct{})
		m.contacts[ownerID] = edges
	}
	edges[contactID] = struct{}{}
	return nil
}

func (m *memStore) ContactsOf(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("ContactsOf"); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for contactID := range m.contacts[userID] {
		if _, ok := seen[contactID]; !ok {
			seen[contactID] = struct{}{}
			ids = append(ids, contactID)
		}
	}
	for ownerID, edges := range m.contacts {
		if _, ok := edges[userID]; !ok {
			continue
		}
		if _, ok := seen[ownerID]; !ok {
			seen[ownerID] = struct{}{}
			ids = append(ids, ownerID)
		}
	}
	return ids, nil
}

func (m *memStore) InsertMessage(ctx context.Context, msg *storage.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("InsertMessage"); err != nil {
		return err
	}
	m.nextMsgID++
	msg.ID = m.nextMsgID
	msg.SentAt = time.Now().UTC()
	copied := *msg
	copied.Sender = nil
	copied.ReplyTo = nil
	m.messages[msg.ID] = &copied
	return nil
}

func (m *memStore) GetMessage(ctx context.Context, id int64) (*storage.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("GetMessage"); err != nil {
		return nil, err
	}
	msg, ok := m.messages[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return m.hydrateLocked(msg), nil
}

func (m *memStore) RecentMessages(ctx context.Context, roomID int64, limit int) ([]storage.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("RecentMessages"); err != nil {
		return nil, err
	}
	var all []*storage.Message
	for id := int64(1); id <= m.nextMsgID; id++ {
		if msg, ok := m.messages[id]; ok && msg.RoomID == roomID {
			all = append(all, msg)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	messages := make([]storage.Message, 0, len(all))
	for _, msg := range all {
		messages = append(messages, *m.hydrateLocked(msg))
	}
	return messages, nil
}

func (m *memStore) hydrateLocked(msg *storage.Message) *storage.Message {
	copied := *msg
	if sender, ok := m.users[msg.SenderID]; ok {
		senderCopy := *sender
		copied.Sender = &senderCopy
	}
	if msg.ReplyToID != nil {
		if target, ok := m.messages[*msg.ReplyToID]; ok {
			targetCopy := *target
			if sender, ok := m.users[target.SenderID]; ok {
				senderCopy := *sender
				targetCopy.Sender = &senderCopy
			}
			copied.ReplyTo = &targetCopy
		}
	}
	return &copied
}

func (m *memStore) UpsertDeliveryStatus(ctx context.Context, messageID, recipientID int64, delivered bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("UpsertDeliveryStatus"); err != nil {
		return err
	}
	rows, ok := m.statuses[messageID]
	if !ok {
		rows = make(map[int64]*storage.MessageStatus)
		m.statuses[messageID] = rows
	}
	row, ok := rows[recipientID]
	if !ok {
		row = &storage.MessageStatus{MessageID: messageID, RecipientID: recipientID}
		rows[recipientID] = row
	}
	row.Delivered = delivered
	if delivered {
		row.DeliveredAt = &at
	}
	return nil
}

func (m *memStore) MarkMessageRead(ctx context.Context, messageID, readerID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failureFor("MarkMessageRead"); err != nil {
		return false, err
	}
	row, ok := m.statuses[messageID][readerID]
	if !ok || row.Read {
		return false, nil
	}
	row.Read = true
	row.ReadAt = &at
	return true, nil
}

// statusOf returns a copy of a delivery-status row, if present.
func (m *memStore) statusOf(messageID, recipientID int64) (storage.MessageStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.statuses[messageID][recipientID]
	if !ok {
		return storage.MessageStatus{}, false
	}
	return *row, true
}

// messageCount reports how many messages have been persisted.
func (m *memStore) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// userSnapshot returns a copy of a stored user.
func (m *memStore) userSnapshot(id int64) (storage.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return storage.User{}, false
	}
	return *user, true
}
