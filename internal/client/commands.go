package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

const authRequestTimeout = 10 * time.Second

func (a *App) handleSubmit(value string) tea.Cmd {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if isCommandInput(trimmed, a.cfg.CommandPrefix) {
		return a.executeCommand(trimmed)
	}
	return a.sendChatMessage(trimmed, "")
}

func (a *App) executeCommand(raw string) tea.Cmd {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}

	cmd := strings.ToLower(fields[0])
	var cmds []tea.Cmd

	switch cmd {
	case "/chat":
		a.view = viewChat
		a.logf("Switched to CHAT view")
	case "/help":
		a.view = viewHelp
		a.logf("Switched to HELP view")
	case "/pipe":
		if len(fields) > 1 && strings.EqualFold(fields[1], "clear") {
			a.pipeHistory = a.pipeHistory[:0]
			a.logf("Cleared pipe history")
			break
		}
		a.view = viewPipe
		a.logf("Switched to PIPE view")
	case "/register":
		if authCmd := a.commandAuth("register", fields[1:]); authCmd != nil {
			cmds = append(cmds, authCmd)
		}
	case "/login":
		if authCmd := a.commandAuth("login", fields[1:]); authCmd != nil {
			cmds = append(cmds, authCmd)
		}
	case "/connect":
		if connectCmd := a.commandConnect(fields[1:]); connectCmd != nil {
			cmds = append(cmds, connectCmd)
		}
	case "/join":
		if joinCmd := a.commandJoin(fields[1:]); joinCmd != nil {
			cmds = append(cmds, joinCmd)
		}
	case "/leave":
		if leaveCmd := a.commandLeave(fields[1:]); leaveCmd != nil {
			cmds = append(cmds, leaveCmd)
		}
	case "/reply":
		if replyCmd := a.commandReply(fields[1:]); replyCmd != nil {
			cmds = append(cmds, replyCmd)
		}
	case "/read":
		if readCmd := a.commandRead(fields[1:]); readCmd != nil {
			cmds = append(cmds, readCmd)
		}
	case "/quit", "/exit":
		a.logf("Exiting client")
		cmds = append(cmds, a.shutdown())
	default:
		a.logErrorf("Unknown command %s; use /help", cmd)
	}

	a.updateViewportContent()

	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}

// commandAuth performs the register or login HTTP exchange and stores
// the returned token on success.
func (a *App) commandAuth(action string, args []string) tea.Cmd {
	if len(args) < 2 {
		a.logErrorf("Usage: /%s <username> <password>", action)
		return nil
	}
	username := args[0]
	password := strings.Join(args[1:], " ")
	if strings.TrimSpace(password) == "" {
		a.logErrorf("Password cannot be empty")
		return nil
	}

	serverURL := strings.TrimRight(a.serverURL, "/")
	path := "/api/auth/" + action
	a.logf("Sending %s request for %s ...", action, username)

	return func() tea.Msg {
		var payload any
		if action == "register" {
			payload = protocol.RegisterRequest{Username: username, Password: password}
		} else {
			payload = protocol.LoginRequest{Username: username, Password: password}
		}
		resp, err := postAuthRequest(serverURL+path, payload)
		return authResultMsg{action: action, resp: resp, err: err}
	}
}

func postAuthRequest(url string, payload any) (protocol.AuthResponse, error) {
	var out protocol.AuthResponse
	body, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	httpClient := &http.Client{Timeout: authRequestTimeout}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var failure struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			return out, fmt.Errorf("%s", failure.Error)
		}
		return out, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func (a *App) commandConnect(args []string) tea.Cmd {
	if a.token == "" {
		a.logErrorf("Authenticate first (use /register or /login)")
		return nil
	}
	target := a.serverURL
	if len(args) > 0 {
		target = args[0]
	}
	if target == "" {
		a.logErrorf("Provide a server URL to connect")
		return nil
	}
	if a.session != nil {
		a.session.Close()
		a.session = nil
		a.statusOnline = false
	}
	token := a.token
	a.logf("Connecting to %s ...", target)

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		session, err := Dial(ctx, target, token)
		return connectResultMsg{session: session, address: target, err: err}
	}
}

func (a *App) commandJoin(args []string) tea.Cmd {
	if len(args) < 1 {
		a.logErrorf("Usage: /join <room-id>")
		return nil
	}
	if !a.isConnected() {
		a.logErrorf("Not connected. Use /connect first.")
		return nil
	}
	roomID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || roomID <= 0 {
		a.logErrorf("Invalid room id: %s", args[0])
		return nil
	}
	if roomID == a.room {
		a.logf("Already in room %d", roomID)
		return nil
	}
	a.logf("Joining room %d ...", roomID)
	return a.sendFrame(protocol.EventJoinRoom,
		protocol.JoinRoomRequest{RoomID: args[0]},
		fmt.Sprintf("join room %d", roomID))
}

func (a *App) commandLeave(args []string) tea.Cmd {
	if !a.isConnected() {
		a.logErrorf("Not connected. Use /connect first.")
		return nil
	}
	roomID := a.room
	if len(args) > 0 {
		parsed, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || parsed <= 0 {
			a.logErrorf("Invalid room id: %s", args[0])
			return nil
		}
		roomID = parsed
	}
	if roomID == 0 {
		a.logErrorf("No active room to leave")
		return nil
	}
	a.logf("Leaving room %d ...", roomID)
	return a.sendFrame(protocol.EventLeaveRoom,
		protocol.LeaveRoomRequest{RoomID: strconv.FormatInt(roomID, 10)},
		fmt.Sprintf("leave room %d", roomID))
}

func (a *App) commandReply(args []string) tea.Cmd {
	if len(args) < 2 {
		a.logErrorf("Usage: /reply <message-id> <text>")
		return nil
	}
	messageID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || messageID <= 0 {
		a.logErrorf("Invalid message id: %s", args[0])
		return nil
	}
	content := strings.Join(args[1:], " ")
	return a.sendChatMessage(content, strconv.FormatInt(messageID, 10))
}

func (a *App) commandRead(args []string) tea.Cmd {
	if len(args) < 1 {
		a.logErrorf("Usage: /read <message-id> [message-id ...]")
		return nil
	}
	if !a.isConnected() {
		a.logErrorf("Not connected. Use /connect first.")
		return nil
	}
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			a.logErrorf("Invalid message id: %s", arg)
			return nil
		}
		ids = append(ids, id)
	}
	a.logf("Marking %d message(s) as read ...", len(ids))
	return a.sendFrame(protocol.EventMarkMessagesAsRead,
		protocol.MarkMessagesAsReadRequest{MessageIDs: ids},
		"read receipt")
}

func (a *App) sendChatMessage(content, replyToID string) tea.Cmd {
	if !a.isConnected() {
		a.logErrorf("Not connected. Use /connect first.")
		return nil
	}
	if !a.hasActiveRoom() {
		a.logErrorf("Join a room before chatting (use /join <room-id>)")
		return nil
	}
	if a.view != viewChat {
		a.view = viewChat
		a.updateViewportContent()
	}
	return a.sendFrame(protocol.EventSendMessage, protocol.SendMessageRequest{
		RoomID:    strconv.FormatInt(a.room, 10),
		Content:   content,
		ReplyToID: replyToID,
	}, "chat message")
}

func (a *App) typingCommand(active bool) tea.Cmd {
	session := a.session
	room := a.room
	if session == nil || room == 0 {
		return nil
	}
	req := protocol.SetTypingStatusRequest{
		RoomID:   strconv.FormatInt(room, 10),
		IsTyping: active,
	}
	// Typing indicators are best-effort; failures are not reported.
	return func() tea.Msg {
		session.Send(protocol.EventSetTypingStatus, req)
		return nil
	}
}

// sendFrame encodes and transmits one event, recording it in the pipe
// view.
func (a *App) sendFrame(event string, payload any, description string) tea.Cmd {
	session := a.session
	if session == nil {
		return nil
	}
	if frame, err := protocol.NewFrame(event, payload); err == nil {
		a.appendPipeEntry(pipeDirectionOut, frame)
	}
	return func() tea.Msg {
		err := session.Send(event, payload)
		return sendResultMsg{description: description, err: err}
	}
}

func defaultCommands() []commandSpec {
	return []commandSpec{
		{trigger: "/register", usage: "/register <username> <password>", description: "Create a new account"},
		{trigger: "/login", usage: "/login <username> <password>", description: "Authenticate with existing credentials"},
		{trigger: "/connect", usage: "/connect [url]", description: "Open the live connection"},
		{trigger: "/join", usage: "/join <room-id>", description: "Join a room and load its history"},
		{trigger: "/leave", usage: "/leave [room-id]", description: "Leave the active room"},
		{trigger: "/reply", usage: "/reply <message-id> <text>", description: "Reply to a message"},
		{trigger: "/read", usage: "/read <message-id> ...", description: "Mark messages as read"},
		{trigger: "/chat", usage: "/chat", description: "Switch to chat view"},
		{trigger: "/pipe", usage: "/pipe [clear]", description: "Inspect transport frames"},
		{trigger: "/help", usage: "/help", description: "Show command help"},
		{trigger: "/quit", usage: "/quit", description: "Exit the client"},
	}
}
