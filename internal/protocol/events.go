package protocol

import "time"

// Client-initiated events.
const (
	EventJoinRoom           = "joinRoom"
	EventLeaveRoom          = "leaveRoom"
	EventSendMessage        = "sendMessage"
	EventSetTypingStatus    = "setTypingStatus"
	EventMarkMessagesAsRead = "markMessagesAsRead"
)

// Server-initiated events.
const (
	EventJoinedRoom           = "joinedRoom"
	EventLeftRoom             = "leftRoom"
	EventError                = "error"
	EventReceiveMessage       = "receiveMessage"
	EventUserTypingStatus     = "userTypingStatus"
	EventUserJoinedRoom       = "userJoinedRoom"
	EventUserLeftRoom         = "userLeftRoom"
	EventMessageRead          = "messageRead"
	EventContactStatusChanged = "contactStatusChanged"
)

// JoinRoomRequest asks to join a room's live broadcast set.
type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

// LeaveRoomRequest asks to leave a room's live broadcast set.
type LeaveRoomRequest struct {
	RoomID string `json:"roomId"`
}

// SendMessageRequest submits a message to a room, optionally as a reply.
type SendMessageRequest struct {
	RoomID    string `json:"roomId"`
	Content   string `json:"content"`
	ReplyToID string `json:"replyToId,omitempty"`
}

// SetTypingStatusRequest toggles the sender's typing indicator in a room.
type SetTypingStatusRequest struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// MarkMessagesAsReadRequest acknowledges messages as read by the sender
// of the request.
type MarkMessagesAsReadRequest struct {
	MessageIDs []int64 `json:"messageIds"`
}

// ChatMessage is the hydrated wire form of a stored message.
type ChatMessage struct {
	ID                int64         `json:"id"`
	RoomID            int64         `json:"roomId"`
	SenderID          int64         `json:"senderId"`
	SenderUsername    string        `json:"senderUsername"`
	SenderDisplayName string        `json:"senderDisplayName,omitempty"`
	Content           string        `json:"content"`
	SentAt            time.Time     `json:"sentAt"`
	EditedAt          *time.Time    `json:"editedAt,omitempty"`
	ReplyTo           *ReplyPreview `json:"replyTo,omitempty"`
}

// ReplyPreview is the one-level summary of a message being replied to.
type ReplyPreview struct {
	ID             int64  `json:"id"`
	SenderID       int64  `json:"senderId"`
	SenderUsername string `json:"senderUsername"`
	Content        string `json:"content"`
}

// JoinedRoom confirms a join and replays recent room history.
type JoinedRoom struct {
	RoomID  int64         `json:"roomId"`
	History []ChatMessage `json:"history"`
}

// LeftRoom confirms a leave.
type LeftRoom struct {
	RoomID int64 `json:"roomId"`
}

// ErrorNotice reports a rejected operation back to its caller.
type ErrorNotice struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// ReceiveMessage delivers a new message to room subscribers.
type ReceiveMessage struct {
	Message ChatMessage `json:"message"`
}

// UserTypingStatus notifies room subscribers of a typing change.
type UserTypingStatus struct {
	RoomID   int64  `json:"roomId"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// UserJoinedRoom notifies room subscribers that a user came online in the room.
type UserJoinedRoom struct {
	RoomID   int64  `json:"roomId"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// UserLeftRoom notifies room subscribers that a user left the room's live set.
type UserLeftRoom struct {
	RoomID   int64  `json:"roomId"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// MessageRead notifies a message's sender that a recipient read it.
type MessageRead struct {
	MessageID int64     `json:"messageId"`
	ReadBy    int64     `json:"readBy"`
	ReadAt    time.Time `json:"readAt"`
}

// ContactStatusChanged notifies contacts of a presence transition.
type ContactStatusChanged struct {
	UserID     int64     `json:"userId"`
	Online     bool      `json:"online"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}
