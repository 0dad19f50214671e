package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// User represents a persisted account record.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Online       bool
	LastSeenAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a persisted conversation room.
type Room struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Message is a chat message persisted within a room. The store assigns
// ID and SentAt on insert; IDs are monotonic per room.
type Message struct {
	ID        int64
	RoomID    int64
	SenderID  int64
	Content   string
	SentAt    time.Time
	EditedAt  *time.Time
	ReplyToID *int64

	// Hydrated relations, populated by reads that declare so.
	Sender  *User
	ReplyTo *Message
}

// MessageStatus tracks per-recipient delivery and read state for a message.
type MessageStatus struct {
	MessageID   int64
	RecipientID int64
	Delivered   bool
	DeliveredAt *time.Time
	Read        bool
	ReadAt      *time.Time
}

// Store defines persistence operations used by the server. Implementations
// must translate missing-record conditions to ErrNotFound.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	SetOnlineStatus(ctx context.Context, userID int64, online bool, lastSeenAt time.Time) error

	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id int64) (*Room, error)
	AddParticipant(ctx context.Context, roomID, userID int64) error
	IsParticipant(ctx context.Context, roomID, userID int64) (bool, error)
	ParticipantsOf(ctx context.Context, roomID, excludeUserID int64) ([]int64, error)

	AddContact(ctx context.Context, ownerID, contactID int64) error
	ContactsOf(ctx context.Context, userID int64) ([]int64, error)

	InsertMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id int64) (*Message, error)
	RecentMessages(ctx context.Context, roomID int64, limit int) ([]Message, error)

	UpsertDeliveryStatus(ctx context.Context, messageID, recipientID int64, delivered bool, at time.Time) error
	MarkMessageRead(ctx context.Context, messageID, readerID int64, at time.Time) (bool, error)
}
