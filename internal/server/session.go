package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/auth"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/logger"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/metrics"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

// disconnectFlushTimeout bounds the durable writes performed while a
// session tears down, so cleanup cannot hang on a sick store.
const disconnectFlushTimeout = 5 * time.Second

// session drives one authenticated WebSocket connection: a read loop that
// routes inbound events and a write loop that drains the outbound queue
// and keeps the connection alive.
type session struct {
	app  *App
	conn *websocket.Conn

	id       string
	userID   int64
	username string

	out     chan protocol.Frame
	limiter *rate.Limiter

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(app *App, conn *websocket.Conn, claims *auth.Claims) *session {
	return &session{
		app:      app,
		conn:     conn,
		userID:   claims.UserID,
		username: claims.Username,
		out:      make(chan protocol.Frame, app.cfg.SendQueueSize),
		limiter:  rate.NewLimiter(rate.Limit(app.cfg.RateLimit.PerSecond), app.cfg.RateLimit.Burst),
		done:     make(chan struct{}),
	}
}

// serve registers the session and runs it until the connection drops or
// the server shuts it down.
func (s *session) serve(ctx context.Context) {
	var first bool
	s.id, first = s.app.registry.Register(s.userID, s.out)
	s.app.trackSession(s)
	metrics.ConnectionsActive.Inc()
	logger.Log.Info("session opened", "conn", s.id, "user", s.userID, "remote", s.conn.RemoteAddr().String())

	s.app.presence.HandleConnected(ctx, s.userID, first)

	go s.writePump()
	s.readPump(ctx)
	s.close()
}

// readPump consumes inbound frames until the connection fails or closes.
// The read deadline is refreshed by pong responses to the write loop's
// pings.
func (s *session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(s.app.cfg.MaxMessageBytes)
	refresh := func() error {
		return s.conn.SetReadDeadline(time.Now().Add(s.app.cfg.KeepAliveTimeout))
	}
	if err := refresh(); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error { return refresh() })

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Log.Warn("session read failed", "conn", s.id, "user", s.userID, "err", err)
			}
			return
		}
		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.sendError("", "malformed frame")
			continue
		}
		if !s.limiter.Allow() {
			metrics.RateLimitedFrames.Inc()
			s.sendError(frame.Event, "rate limit exceeded")
			continue
		}
		s.route(ctx, frame)
	}
}

// route dispatches one inbound frame to its operation handler.
func (s *session) route(ctx context.Context, frame protocol.Frame) {
	switch frame.Event {
	case protocol.EventJoinRoom:
		s.handleJoinRoom(ctx, frame)
	case protocol.EventLeaveRoom:
		s.handleLeaveRoom(ctx, frame)
	case protocol.EventSendMessage:
		s.handleSendMessage(ctx, frame)
	case protocol.EventSetTypingStatus:
		s.handleSetTypingStatus(ctx, frame)
	case protocol.EventMarkMessagesAsRead:
		s.handleMarkMessagesAsRead(ctx, frame)
	default:
		s.sendError(frame.Event, "unsupported event")
	}
}

// writePump drains the outbound queue and pings the peer. Exiting closes
// the connection, which in turn unblocks the read loop.
func (s *session) writePump() {
	pingPeriod := s.app.cfg.KeepAliveTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(s.app.cfg.WriteTimeout))
			if err := s.conn.WriteJSON(frame); err != nil {
				logger.Log.Warn("session write failed", "conn", s.id, "user", s.userID, "err", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.app.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(s.app.cfg.WriteTimeout))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server closing"))
			return
		}
	}
}

// send enqueues a frame for this session without blocking. Frames are
// dropped once the session is closing or its queue is full.
func (s *session) send(frame protocol.Frame) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- frame:
	default:
		logger.Log.Warn("send queue full, dropping frame", "conn", s.id, "event", frame.Event)
	}
}

func (s *session) sendEvent(event string, payload any) {
	frame, err := protocol.NewFrame(event, payload)
	if err != nil {
		logger.Log.Error("encode frame", "conn", s.id, "event", event, "err", err)
		return
	}
	s.send(frame)
}

func (s *session) sendError(op, reason string) {
	s.sendEvent(protocol.EventError, protocol.ErrorNotice{Op: op, Reason: reason})
}

// close tears the session down exactly once: room subscriptions and the
// registry entry go first, then presence. In-memory cleanup always
// completes even when the durable presence write fails.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)

		left := s.app.rooms.UnsubscribeAll(s.id)
		for _, roomID := range left {
			s.app.notifyRoom(roomID, protocol.EventUserLeftRoom, protocol.UserLeftRoom{
				RoomID:   roomID,
				UserID:   s.userID,
				Username: s.username,
			})
		}

		userID, wasLast, ok := s.app.registry.Deregister(s.id)
		if ok {
			ctx, cancel := context.WithTimeout(context.Background(), disconnectFlushTimeout)
			defer cancel()
			s.app.presence.HandleDisconnected(ctx, userID, wasLast)
		}

		s.conn.Close()
		s.app.forgetSession(s)
		metrics.ConnectionsActive.Dec()
		logger.Log.Info("session closed", "conn", s.id, "user", s.userID)
	})
}
