package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// handleRegister serves POST /api/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: a valid email is required", errInvalidRequest))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: name is required", errInvalidRequest))
		return
	}

	_, err := s.store.GetUserByEmail(r.Context(), email)
	switch {
	case err == nil:
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: email already registered", errConflict))
		return
	case !errors.Is(err, store.ErrNotFound):
		writeErrorFrom(w, s.logger, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}

	user, err := s.store.CreateUser(r.Context(), model.User{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
	})
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.writeToken(w, http.StatusCreated, user)
}

// handleLogin serves POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		writeErrorFrom(w, s.logger, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.writeToken(w, http.StatusOK, user)
}

// handleMe serves GET /api/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) writeToken(w http.ResponseWriter, status int, user *model.User) {
	token, expires, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, status, authResponse{Token: token, ExpiresAt: expires, User: user})
}
