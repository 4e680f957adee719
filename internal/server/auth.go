package server

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/wellness/internal/httpx"
	"github.com/sadopc/wellness/internal/store"
)

const minPasswordLen = 6

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *store.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email}
}

func (c credentials) validate() string {
	if !strings.Contains(c.Email, "@") {
		return "Please enter a valid email"
	}
	if len(c.Password) < minPasswordLen {
		return "Password must be at least 6 characters"
	}
	return ""
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := httpx.DecodeJSON(w, r, maxRequestBytes, &c); err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c.Email = strings.TrimSpace(c.Email)
	if msg := c.validate(); msg != "" {
		httpx.RespondErrorString(w, http.StatusBadRequest, msg)
		return
	}

	u, err := s.store.CreateUser(c.Email, c.Password)
	if errors.Is(err, store.ErrEmailTaken) {
		httpx.RespondErrorString(w, http.StatusConflict, "User already exists")
		return
	}
	if err != nil {
		s.internalError(w, "create user", err)
		return
	}
	s.log.Info("user registered", zap.String("user", u.ID))
	s.issue(w, http.StatusCreated, u)
}

// handleLogin answers bad credentials with 400 rather than 401 so clients
// do not mistake them for an expired session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := httpx.DecodeJSON(w, r, maxRequestBytes, &c); err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := s.store.Authenticate(strings.TrimSpace(c.Email), c.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		s.internalError(w, "authenticate", err)
		return
	}
	s.issue(w, http.StatusOK, u)
}

func (s *Server) issue(w http.ResponseWriter, status int, u *store.User) {
	tok, err := s.store.IssueToken(u.ID, s.tokenTTL)
	if err != nil {
		s.internalError(w, "issue token", err)
		return
	}
	httpx.RespondJSON(w, status, authResponse{Token: tok.Token, User: toUserResponse(u)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, toUserResponse(userFrom(r)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
