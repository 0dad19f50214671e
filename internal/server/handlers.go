package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/auth"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/logger"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/storage"
)

var (
	errUserExists         = errors.New("username already taken")
	errInvalidCredentials = errors.New("invalid credentials")
	errMissingCredentials = errors.New("username and password required")
)

// handleRegister creates an account and returns a fresh token.
func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req protocol.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	user, err := a.createUser(r.Context(), req)
	if err != nil {
		a.reportAuthError(w, err)
		return
	}
	a.writeAuthResponse(w, http.StatusCreated, user)
}

// handleLogin verifies credentials and returns a fresh token.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req protocol.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	user, err := a.authenticateUser(r.Context(), req)
	if err != nil {
		a.reportAuthError(w, err)
		return
	}
	a.writeAuthResponse(w, http.StatusOK, user)
}

// handleWS authenticates the handshake and hands the connection to a
// session. Invalid tokens are rejected before the upgrade, so they never
// reach the registry.
func (a *App) handleWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing access token")
		return
	}
	claims, err := auth.ParseToken(a.cfg.JWT, token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid access token")
		return
	}
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	newSession(a, conn, claims).serve(r.Context())
}

// handleHealthz reports process liveness.
func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) createUser(ctx context.Context, req protocol.RegisterRequest) (*storage.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, errMissingCredentials
	}
	if _, err := a.store.GetUserByUsername(ctx, username); err == nil {
		return nil, errUserExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}
	user := &storage.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		LastSeenAt:   time.Now().UTC(),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logger.Log.Info("user registered", "user", user.ID, "username", user.Username)
	return user, nil
}

func (a *App) authenticateUser(ctx context.Context, req protocol.LoginRequest) (*storage.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, errMissingCredentials
	}
	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

func (a *App) writeAuthResponse(w http.ResponseWriter, code int, user *storage.User) {
	token, err := auth.NewToken(a.cfg.JWT, user.ID, user.Username)
	if err != nil {
		logger.Log.Error("issue token", "user", user.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, code, protocol.AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(a.cfg.JWT.Expiration).Unix(),
		User: protocol.UserSummary{
			ID:          user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
		},
	})
}

func (a *App) reportAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errMissingCredentials):
		writeError(w, http.StatusBadRequest, errMissingCredentials.Error())
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, auth.ErrPasswordTooLong.Error())
	case errors.Is(err, errUserExists):
		writeError(w, http.StatusConflict, errUserExists.Error())
	case errors.Is(err, errInvalidCredentials):
		writeError(w, http.StatusUnauthorized, errInvalidCredentials.Error())
	default:
		logger.Log.Error("auth request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "temporary failure")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
