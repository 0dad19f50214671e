package gormstore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/config"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage"
)

// Store is a GORM-backed implementation of storage.Store. It speaks
// PostgreSQL when a DSN is configured and falls back to embedded SQLite
// for local development.
type Store struct {
	db *gorm.DB
}

type userModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64"`
	DisplayName  string `gorm:"size:128"`
	PasswordHash string
	Online       bool `gorm:"default:false"`
	LastSeenAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type roomModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128"`
	CreatedAt time.Time
}

func (roomModel) TableName() string { return "rooms" }

type participantModel struct {
	RoomID   int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID   int64 `gorm:"primaryKey;autoIncrement:false"`
	JoinedAt time.Time
}

func (participantModel) TableName() string { return "room_participants" }

type contactModel struct {
	OwnerID   int64 `gorm:"primaryKey;autoIncrement:false"`
	ContactID int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

func (contactModel) TableName() string { return "contacts" }

type messageModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	RoomID    int64 `gorm:"index"`
	SenderID  int64
	Content   string
	SentAt    time.Time
	EditedAt  *time.Time
	ReplyToID *int64

	Sender  *userModel    `gorm:"foreignKey:SenderID"`
	ReplyTo *messageModel `gorm:"foreignKey:ReplyToID"`
}

func (messageModel) TableName() string { return "messages" }

type statusModel struct {
	MessageID   int64 `gorm:"primaryKey;autoIncrement:false"`
	RecipientID int64 `gorm:"primaryKey;autoIncrement:false"`
	Delivered   bool
	DeliveredAt *time.Time
	Read        bool
	ReadAt      *time.Time
}

func (statusModel) TableName() string { return "message_statuses" }

// Open connects to the configured database. A non-empty URL selects the
// PostgreSQL driver; otherwise the store opens the SQLite file at Path.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	if cfg.URL != "" {
		dialector = postgres.Open(cfg.URL)
	} else {
		dialector = sqlite.Open(cfg.Path)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&userModel{},
		&roomModel{},
		&participantModel{},
		&contactModel{},
		&messageModel{},
		&statusModel{},
	)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// CreateUser stores a new user record and fills in its assigned ID.
func (s *Store) CreateUser(ctx context.Context, user *storage.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	model := userModel{
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		Online:       user.Online,
		LastSeenAt:   user.LastSeenAt,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*storage.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, translate(err)
	}
	return toUser(&model), nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return toUser(&model), nil
}

// SetOnlineStatus records a user's presence transition.
func (s *Store) SetOnlineStatus(ctx context.Context, userID int64, online bool, lastSeenAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{"online": online, "last_seen_at": lastSeenAt}).Error
}

// CreateRoom stores a new room and fills in its assigned ID.
func (s *Store) CreateRoom(ctx context.Context, room *storage.Room) error {
	if room == nil {
		return errors.New("nil room")
	}
	model := roomModel{Name: room.Name}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	room.ID = model.ID
	room.CreatedAt = model.CreatedAt
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Store) GetRoom(ctx context.Context, id int64) (*storage.Room, error) {
	var model roomModel
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, translate(err)
	}
	return &storage.Room{ID: model.ID, Name: model.Name, CreatedAt: model.CreatedAt}, nil
}

// AddParticipant makes a user a durable participant of a room.
func (s *Store) AddParticipant(ctx context.Context, roomID, userID int64) error {
	model := participantModel{RoomID: roomID, UserID: userID, JoinedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}

// IsParticipant reports whether the user is a durable participant of the room.
func (s *Store) IsParticipant(ctx context.Context, roomID, userID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// ParticipantsOf lists the user IDs of a room's participants, excluding one.
func (s *Store) ParticipantsOf(ctx context.Context, roomID, excludeUserID int64) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("room_id = ? AND user_id <> ?", roomID, excludeUserID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// AddContact records a directed contact edge.
func (s *Store) AddContact(ctx context.Context, ownerID, contactID int64) error {
	model := contactModel{OwnerID: ownerID, ContactID: contactID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}

// ContactsOf lists users related to userID by a contact edge in either
// direction, deduplicated and sorted.
func (s *Store) ContactsOf(ctx context.Context, userID int64) ([]int64, error) {
	var owned, owning []int64
	if err := s.db.WithContext(ctx).
		Model(&contactModel{}).
		Where("owner_id = ?", userID).
		Pluck("contact_id", &owned).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&contactModel{}).
		Where("contact_id = ?", userID).
		Pluck("owner_id", &owning).Error; err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(owned)+len(owning))
	ids := make([]int64, 0, len(owned)+len(owning))
	for _, id := range append(owned, owning...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// InsertMessage persists a message, assigning its ID and timestamp.
func (s *Store) InsertMessage(ctx context.Context, msg *storage.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	model := messageModel{
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		SentAt:    time.Now().UTC(),
		ReplyToID: msg.ReplyToID,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	msg.ID = model.ID
	msg.SentAt = model.SentAt
	return nil
}

// GetMessage retrieves a message with its sender hydrated.
func (s *Store) GetMessage(ctx context.Context, id int64) (*storage.Message, error) {
	var model messageModel
	err := s.db.WithContext(ctx).
		Preload("Sender").
		First(&model, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return toMessage(&model), nil
}

// RecentMessages returns up to limit most recent messages of a room in
// chronological order, with senders and reply targets hydrated.
func (s *Store) RecentMessages(ctx context.Context, roomID int64, limit int) ([]storage.Message, error) {
	var models []messageModel
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("ReplyTo").
		Preload("ReplyTo.Sender").
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	messages := make([]storage.Message, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		messages = append(messages, *toMessage(&models[i]))
	}
	return messages, nil
}

// UpsertDeliveryStatus creates or refreshes the delivery half of a status
// row without touching its read state.
func (s *Store) UpsertDeliveryStatus(ctx context.Context, messageID, recipientID int64, delivered bool, at time.Time) error {
	var deliveredAt *time.Time
	if delivered {
		deliveredAt = &at
	}
	model := statusModel{
		MessageID:   messageID,
		RecipientID: recipientID,
		Delivered:   delivered,
		DeliveredAt: deliveredAt,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "recipient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"delivered", "delivered_at"}),
		}).
		Create(&model).Error
}

// MarkMessageRead flips the reader's status row to read exactly once.
// It reports whether this call performed the transition.
func (s *Store) MarkMessageRead(ctx context.Context, messageID, readerID int64, at time.Time) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&statusModel{}).
		Where("message_id = ? AND recipient_id = ? AND read = ?", messageID, readerID, false).
		Updates(map[string]any{"read": true, "read_at": at})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func toUser(model *userModel) *storage.User {
	return &storage.User{
		ID:           model.ID,
		Username:     model.Username,
		DisplayName:  model.DisplayName,
		PasswordHash: model.PasswordHash,
		Online:       model.Online,
		LastSeenAt:   model.LastSeenAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toMessage(model *messageModel) *storage.Message {
	msg := &storage.Message{
		ID:        model.ID,
		RoomID:    model.RoomID,
		SenderID:  model.SenderID,
		Content:   model.Content,
		SentAt:    model.SentAt,
		EditedAt:  model.EditedAt,
		ReplyToID: model.ReplyToID,
	}
	if model.Sender != nil {
		msg.Sender = toUser(model.Sender)
	}
	if model.ReplyTo != nil {
		msg.ReplyTo = toMessage(model.ReplyTo)
	}
	return msg
}
