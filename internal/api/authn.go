package api

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/store"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handleLogin verifies operator credentials and issues an access token.
// Unknown user, inactive account, and wrong password all produce the same
// response so the endpoint does not confirm which usernames exist.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeDetail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	var user model.User
	err := s.registry.WithSession(r.Context(), store.Users, func(tx *gorm.DB) error {
		return tx.Where("username = ?", req.Username).First(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.rejectLogin(w)
			return
		}
		s.writeStoreError(w, r, err, "User")
		return
	}

	if !user.IsActive || s.hasher.Compare(user.HashedPassword, req.Password) != nil {
		s.rejectLogin(w)
		return
	}

	token, expiresAt, err := s.tokens.Issue(user.Username)
	if err != nil {
		s.logger.Error("failed to issue access token", "error", err)
		s.writeDetail(w, http.StatusInternalServerError, "Internal server error. Please try again later.")
		return
	}

	s.writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

func (s *Server) rejectLogin(w http.ResponseWriter) {
	if s.metrics != nil {
		s.metrics.AuthFailuresTotal.WithLabelValues("credentials").Inc()
	}
	s.writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
}

// handleMe returns the account of the authenticated operator.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var user model.User
	err := s.registry.WithSession(r.Context(), store.Users, func(tx *gorm.DB) error {
		return tx.Where("username = ?", claims.Username).First(&user).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "User")
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}
