package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/traintrack/internal/auth"
	"github.com/JonMunkholm/traintrack/internal/core"
	"github.com/JonMunkholm/traintrack/internal/logging"
	"github.com/JonMunkholm/traintrack/internal/upstream"
	mw "github.com/JonMunkholm/traintrack/internal/web/middleware"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      auth.User `json:"user"`
}

// decodeJSON reads a bounded JSON body into v and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	token, user, err := s.sessions.Login(r.Context(), s.users, req.Username, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Warn("staff login failed", "username", req.Username)
		s.respondError(w, r, err, http.StatusUnauthorized)
		return
	}
	expires := time.Now().Add(s.cfg.Security.TokenTTL)

	http.SetCookie(w, &http.Cookie{
		Name:     mw.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	logging.FromContext(r.Context()).Info("staff login", "username", user.Username, "role", user.Role)
	writeJSON(w, loginResponse{Token: token, ExpiresAt: expires, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := mw.PrincipalFromContext(r.Context())
	writeJSON(w, p)
}

func (s *Server) handleUpstreamLogin(w http.ResponseWriter, r *http.Request) {
	if s.upstream == nil {
		s.respondError(w, r, errors.New("upstream login not configured"), http.StatusServiceUnavailable)
		return
	}
	var cred upstream.Credentials
	if err := s.decodeJSON(w, r, &cred); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := s.upstream.Login(r.Context(), cred)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadGateway)
		return
	}
	logging.FromContext(r.Context()).Info("upstream tokens refreshed", "actor", core.ActorFromContext(r.Context()))
	writeJSON(w, map[string]any{"success": true, "tokens": res})
}

// ----------------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------------

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin teacher viewer"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	user := auth.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Role:         auth.Role(req.Role),
		CreatedAt:    time.Now(),
	}
	if err := s.users.PutUser(r.Context(), user); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	logging.FromContext(r.Context()).Info("user saved",
		"username", user.Username, "role", user.Role, "actor", core.ActorFromContext(r.Context()))
	writeJSONStatus(w, http.StatusCreated, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == core.ActorFromContext(r.Context()) {
		s.respondError(w, r, errors.New("forbidden: cannot delete your own account"), http.StatusForbidden)
		return
	}
	if err := s.users.DeleteUser(r.Context(), username); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	logging.FromContext(r.Context()).Info("user deleted", "username", username, "actor", core.ActorFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
