package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/config"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/logger"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage"
)

// App wires the chat server together: the HTTP surface, the connection
// registry, the room router, the presence tracker, and the message
// dispatcher, all sharing one durable store.
type App struct {
	cfg        config.ServerConfig
	store      storage.Store
	registry   *Registry
	rooms      *RoomRouter
	presence   *PresenceTracker
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader

	allowedOrigins map[string]struct{}
	allowAnyOrigin bool

	mu       sync.Mutex
	sessions map[*session]struct{}

	srv *http.Server
}

// NewApp constructs a server instance using the provided dependencies.
func NewApp(cfg config.ServerConfig, store storage.Store) *App {
	registry := NewRegistry()
	rooms := NewRoomRouter(store, registry)

	a := &App{
		cfg:        cfg,
		store:      store,
		registry:   registry,
		rooms:      rooms,
		presence:   NewPresenceTracker(store, registry),
		dispatcher: NewDispatcher(store, registry, rooms),
		sessions:   make(map[*session]struct{}),
	}
	a.allowedOrigins, a.allowAnyOrigin = buildOriginSet(cfg.AllowedOrigins)
	a.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      a.checkOrigin,
	}
	return a
}

// Handler returns the app's HTTP surface.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", a.handleRegister)
	mux.HandleFunc("/api/auth/login", a.handleLogin)
	mux.HandleFunc("/ws", a.handleWS)
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run migrates the store and serves until the context is canceled, then
// shuts the listener down and drains live sessions.
func (a *App) Run(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate storage: %w", err)
	}

	a.srv = &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.HandshakeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("server listening", "addr", a.cfg.ListenAddr)
		errCh <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("server shutting down", "connections", a.registry.Count())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	err := a.srv.Shutdown(shutdownCtx)
	a.drainSessions()
	return err
}

// notifyRoom fans an event out to every live subscriber of the room.
func (a *App) notifyRoom(roomID int64, event string, payload any) {
	frame, err := protocol.NewFrame(event, payload)
	if err != nil {
		logger.Log.Error("encode room event", "room", roomID, "event", event, "err", err)
		return
	}
	for _, connID := range a.rooms.SubscribersOf(roomID) {
		a.registry.Send(connID, frame)
	}
}

// notifyRoomExcept fans an event out to the room's subscribers, skipping
// the originating connection.
func (a *App) notifyRoomExcept(roomID int64, exceptConnID string, event string, payload any) {
	frame, err := protocol.NewFrame(event, payload)
	if err != nil {
		logger.Log.Error("encode room event", "room", roomID, "event", event, "err", err)
		return
	}
	for _, connID := range a.rooms.SubscribersExcluding(roomID, exceptConnID) {
		a.registry.Send(connID, frame)
	}
}

func (a *App) trackSession(s *session) {
	a.mu.Lock()
	a.sessions[s] = struct{}{}
	a.mu.Unlock()
}

func (a *App) forgetSession(s *session) {
	a.mu.Lock()
	delete(a.sessions, s)
	a.mu.Unlock()
}

// drainSessions force-closes every live session. Closing runs the full
// teardown synchronously, so in-memory state is clean when this returns;
// handler goroutines noticing their dead connections later find close a
// no-op.
func (a *App) drainSessions() {
	a.mu.Lock()
	live := make([]*session, 0, len(a.sessions))
	for s := range a.sessions {
		live = append(live, s)
	}
	a.mu.Unlock()

	for _, s := range live {
		s.close()
	}
}
