package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// Session owns one WebSocket connection to the chat server. Inbound
// frames are surfaced on the Messages channel; the channel closes when
// the connection dies.
type Session struct {
	conn   *websocket.Conn
	frames chan protocol.Frame

	// The connection allows one concurrent writer.
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial opens an authenticated session against the server's WebSocket
// endpoint.
func Dial(ctx context.Context, serverURL, token string) (*Session, error) {
	target, err := websocketURL(serverURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("server rejected the access token")
		}
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s := &Session{
		conn:   conn,
		frames: make(chan protocol.Frame, 32),
	}
	go s.readLoop()
	return s, nil
}

// Messages returns the inbound frame stream.
func (s *Session) Messages() <-chan protocol.Frame {
	return s.frames
}

// Send encodes and writes one event frame.
func (s *Session) Send(event string, payload any) error {
	frame, err := protocol.NewFrame(event, payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(frame)
}

// Close shuts the connection down, announcing a normal closure first.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"))
		s.writeMu.Unlock()
		s.conn.Close()
	})
	return nil
}

func (s *Session) readLoop() {
	defer close(s.frames)
	for {
		var frame protocol.Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			return
		}
		s.frames <- frame
	}
}

// websocketURL converts the configured HTTP base URL into the ws(s)
// endpoint address.
func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
