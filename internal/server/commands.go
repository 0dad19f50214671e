package server

import (
	"context"
	"time"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/logger"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

// handleJoinRoom admits the session to a room's live set, replays recent
// history to the caller, and announces the join to other subscribers. The
// join is rolled back when history cannot be loaded.
func (s *session) handleJoinRoom(ctx context.Context, frame protocol.Frame) {
	req, err := decodeJoinRoom(frame)
	if err != nil {
		s.sendError(frame.Event, "malformed payload")
		return
	}
	roomID, err := parseID(req.RoomID)
	if err != nil {
		s.sendError(frame.Event, reasonForError(ErrInvalidRoom))
		return
	}
	if err := s.app.rooms.Subscribe(ctx, s.id, roomID); err != nil {
		if !clientFault(err) {
			logger.Log.Error("subscribe failed", "conn", s.id, "user", s.userID, "room", roomID, "err", err)
		}
		s.sendError(frame.Event, reasonForError(err))
		return
	}

	history, err := s.app.store.RecentMessages(ctx, roomID, s.app.cfg.HistoryLimit)
	if err != nil {
		s.app.rooms.Unsubscribe(s.id, roomID)
		logger.Log.Error("load room history", "conn", s.id, "room", roomID, "err", err)
		s.sendError(frame.Event, "temporary failure")
		return
	}
	replay := make([]protocol.ChatMessage, 0, len(history))
	for i := range history {
		replay = append(replay, wireMessage(&history[i]))
	}

	s.sendEvent(protocol.EventJoinedRoom, protocol.JoinedRoom{RoomID: roomID, History: replay})
	s.app.notifyRoomExcept(roomID, s.id, protocol.EventUserJoinedRoom, protocol.UserJoinedRoom{
		RoomID:   roomID,
		UserID:   s.userID,
		Username: s.username,
	})
	logger.Log.Info("room joined", "conn", s.id, "user", s.userID, "room", roomID)
}

// handleLeaveRoom drops the session from a room's live set. Leaving a
// room the session never joined still confirms, but announces nothing.
func (s *session) handleLeaveRoom(ctx context.Context, frame protocol.Frame) {
	req, err := decodeLeaveRoom(frame)
	if err != nil {
		s.sendError(frame.Event, "malformed payload")
		return
	}
	roomID, err := parseID(req.RoomID)
	if err != nil {
		s.sendError(frame.Event, reasonForError(ErrInvalidRoom))
		return
	}

	removed := s.app.rooms.Unsubscribe(s.id, roomID)
	s.sendEvent(protocol.EventLeftRoom, protocol.LeftRoom{RoomID: roomID})
	if removed {
		s.app.notifyRoomExcept(roomID, s.id, protocol.EventUserLeftRoom, protocol.UserLeftRoom{
			RoomID:   roomID,
			UserID:   s.userID,
			Username: s.username,
		})
		logger.Log.Info("room left", "conn", s.id, "user", s.userID, "room", roomID)
	}
}

// handleSendMessage runs the dispatch pipeline and reports rejections
// back to the caller. Accepted messages reach the session through the
// room broadcast like any other subscriber.
func (s *session) handleSendMessage(ctx context.Context, frame protocol.Frame) {
	req, err := decodeSendMessage(frame)
	if err != nil {
		s.sendError(frame.Event, "malformed payload")
		return
	}
	msg, err := s.app.dispatcher.Send(ctx, s.id, req.RoomID, req.Content, req.ReplyToID)
	if err != nil {
		if !clientFault(err) {
			logger.Log.Error("dispatch failed", "conn", s.id, "user", s.userID, "err", err)
		}
		s.sendError(frame.Event, reasonForError(err))
		return
	}
	logger.Log.Info("message dispatched", "conn", s.id, "user", s.userID, "room", msg.RoomID, "id", msg.ID)
}

// handleSetTypingStatus relays a typing indicator to the room's other
// subscribers. The indicator is best-effort: invalid or unsubscribed
// requests are dropped silently.
func (s *session) handleSetTypingStatus(ctx context.Context, frame protocol.Frame) {
	req, err := decodeSetTypingStatus(frame)
	if err != nil {
		return
	}
	roomID, err := parseID(req.RoomID)
	if err != nil {
		return
	}
	if !s.app.rooms.IsSubscribed(s.id, roomID) {
		return
	}
	s.app.notifyRoomExcept(roomID, s.id, protocol.EventUserTypingStatus, protocol.UserTypingStatus{
		RoomID:   roomID,
		UserID:   s.userID,
		Username: s.username,
		IsTyping: req.IsTyping,
	})
}

// handleMarkMessagesAsRead flips read state for each listed message. Only
// transitions emit a receipt, so re-reading is idempotent; receipts go to
// the original sender's live connections and are otherwise dropped.
func (s *session) handleMarkMessagesAsRead(ctx context.Context, frame protocol.Frame) {
	req, err := decodeMarkMessagesAsRead(frame)
	if err != nil {
		s.sendError(frame.Event, "malformed payload")
		return
	}
	now := time.Now().UTC()
	for _, messageID := range req.MessageIDs {
		changed, err := s.app.store.MarkMessageRead(ctx, messageID, s.userID, now)
		if err != nil {
			logger.Log.Error("mark message read", "conn", s.id, "message", messageID, "err", err)
			continue
		}
		if !changed {
			continue
		}
		msg, err := s.app.store.GetMessage(ctx, messageID)
		if err != nil {
			logger.Log.Error("load message for receipt", "message", messageID, "err", err)
			continue
		}
		receipt, err := protocol.NewFrame(protocol.EventMessageRead, protocol.MessageRead{
			MessageID: messageID,
			ReadBy:    s.userID,
			ReadAt:    now,
		})
		if err != nil {
			logger.Log.Error("encode read receipt", "message", messageID, "err", err)
			continue
		}
		s.app.registry.SendToUser(msg.SenderID, receipt)
	}
}
