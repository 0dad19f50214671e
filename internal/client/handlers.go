package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

// dispatchFrame routes one inbound server frame to its handler.
func (a *App) dispatchFrame(frame protocol.Frame) {
	a.appendPipeEntry(pipeDirectionIn, frame)
	switch frame.Event {
	case protocol.EventJoinedRoom:
		a.handleJoinedRoom(frame)
	case protocol.EventLeftRoom:
		a.handleLeftRoom(frame)
	case protocol.EventReceiveMessage:
		a.handleReceiveMessage(frame)
	case protocol.EventUserJoinedRoom:
		a.handleUserJoinedRoom(frame)
	case protocol.EventUserLeftRoom:
		a.handleUserLeftRoom(frame)
	case protocol.EventUserTypingStatus:
		a.handleUserTypingStatus(frame)
	case protocol.EventMessageRead:
		a.handleMessageRead(frame)
	case protocol.EventContactStatusChanged:
		a.handleContactStatusChanged(frame)
	case protocol.EventError:
		a.handleErrorNotice(frame)
	default:
		a.logErrorf("Unhandled event: %s", frame.Event)
	}
}

func (a *App) handleJoinedRoom(frame protocol.Frame) {
	joined, err := decodeJoinedRoom(frame)
	if err != nil {
		a.logErrorf("Failed to decode join confirmation: %v", err)
		return
	}
	a.room = joined.RoomID
	a.chatHistory = make([]string, 0, len(joined.History)+16)
	for _, msg := range joined.History {
		a.chatHistory = append(a.chatHistory, a.formatChatMessage(msg))
		if msg.ID > a.lastMessageID {
			a.lastMessageID = msg.ID
		}
	}
	a.view = viewChat
	a.updateViewportContent()
	a.logf("Joined room %d (%d messages)", joined.RoomID, len(joined.History))
}

func (a *App) handleLeftRoom(frame protocol.Frame) {
	left, err := decodeLeftRoom(frame)
	if err != nil {
		a.logErrorf("Failed to decode leave confirmation: %v", err)
		return
	}
	if left.RoomID == a.room {
		a.room = 0
		a.chatHistory = nil
		a.typingSent = false
		a.updateViewportContent()
	}
	a.logf("Left room %d", left.RoomID)
}

func (a *App) handleReceiveMessage(frame protocol.Frame) {
	received, err := decodeReceiveMessage(frame)
	if err != nil {
		a.logErrorf("Failed to decode message: %v", err)
		return
	}
	msg := received.Message
	if msg.RoomID != a.room {
		return
	}
	if msg.ID > a.lastMessageID {
		a.lastMessageID = msg.ID
	}
	a.appendChatLine(a.formatChatMessage(msg))
}

func (a *App) handleUserJoinedRoom(frame protocol.Frame) {
	joined, err := decodeUserJoinedRoom(frame)
	if err != nil {
		return
	}
	if joined.RoomID != a.room {
		return
	}
	a.appendChatLine(fmt.Sprintf("* %s joined the room", joined.Username))
}

func (a *App) handleUserLeftRoom(frame protocol.Frame) {
	left, err := decodeUserLeftRoom(frame)
	if err != nil {
		return
	}
	if left.RoomID != a.room {
		return
	}
	a.appendChatLine(fmt.Sprintf("* %s left the room", left.Username))
}

func (a *App) handleUserTypingStatus(frame protocol.Frame) {
	typing, err := decodeUserTypingStatus(frame)
	if err != nil {
		return
	}
	if typing.RoomID != a.room {
		return
	}
	if typing.IsTyping {
		a.logf("%s is typing ...", typing.Username)
	} else {
		a.logf("%s stopped typing", typing.Username)
	}
}

func (a *App) handleMessageRead(frame protocol.Frame) {
	receipt, err := decodeMessageRead(frame)
	if err != nil {
		return
	}
	a.logf("Message #%d read by user %d", receipt.MessageID, receipt.ReadBy)
}

func (a *App) handleContactStatusChanged(frame protocol.Frame) {
	change, err := decodeContactStatusChanged(frame)
	if err != nil {
		return
	}
	if change.Online {
		a.logf("Contact %d is online", change.UserID)
		return
	}
	last := change.LastSeenAt.Local().Format("15:04:05")
	a.logf("Contact %d went offline (last seen %s)", change.UserID, last)
}

func (a *App) handleErrorNotice(frame protocol.Frame) {
	notice, err := decodeErrorNotice(frame)
	if err != nil {
		a.logErrorf("Server reported an error")
		return
	}
	if notice.Op != "" {
		a.logErrorf("Server rejected %s: %s", notice.Op, notice.Reason)
		return
	}
	a.logErrorf("Server error: %s", notice.Reason)
}

func (a *App) appendChatLine(line string) {
	line = strings.TrimRight(line, "\n")
	if line == "" {
		return
	}
	a.chatHistory = append(a.chatHistory, line)
	if a.view == viewChat {
		a.updateViewportContent()
		a.viewport.GotoBottom()
	}
}

func (a *App) appendPipeEntry(direction pipeDirection, frame protocol.Frame) {
	body, err := json.MarshalIndent(frame, "", "  ")
	entry := pipeEntry{
		direction: direction,
		event:     frame.Event,
		timestamp: time.Now(),
		body:      string(body),
	}
	if err != nil {
		entry.body = fmt.Sprintf(`{"marshal_error":%q}`, err.Error())
	}
	if len(a.pipeHistory) >= pipeHistoryLimit {
		a.pipeHistory = append(a.pipeHistory[1:], entry)
	} else {
		a.pipeHistory = append(a.pipeHistory, entry)
	}
	if a.view == viewPipe {
		a.updateViewportContent()
	}
}

func (a *App) formatChatMessage(msg protocol.ChatMessage) string {
	name := strings.TrimSpace(msg.SenderDisplayName)
	if name == "" {
		name = msg.SenderUsername
	}
	if name == "" {
		name = fmt.Sprintf("user %d", msg.SenderID)
	}
	timestamp := msg.SentAt.Local().Format("15:04:05")
	body := strings.TrimSpace(msg.Content)
	if msg.ReplyTo != nil {
		return fmt.Sprintf("[#%d] [%s] %s (replying to #%d %s): %s",
			msg.ID, timestamp, name, msg.ReplyTo.ID, msg.ReplyTo.SenderUsername, body)
	}
	return fmt.Sprintf("[#%d] [%s] %s: %s", msg.ID, timestamp, name, body)
}
