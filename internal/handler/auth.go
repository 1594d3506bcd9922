package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
	"github.com/aryan0dhankhar/serverhub/internal/security/middleware"
	"github.com/aryan0dhankhar/serverhub/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService   *service.AuthService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// CredentialsRequest is the body of register and login
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserEnvelope wraps a user as {"user": {...}}
type UserEnvelope struct {
	User UserResponse `json:"user"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			writeErrorMessage(w, http.StatusConflict, "user with this email already exists")
		case errors.Is(err, service.ErrRegistrationClosed):
			writeErrorMessage(w, http.StatusForbidden, "registration is closed")
		default:
			writeError(w, r, h.logger, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, UserEnvelope{User: toUserResponse(user)})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	auth.SetCookie(w, result.Token, result.ExpiresAt, h.secureCookies)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	})
}

// Logout handles POST /api/auth/logout. It succeeds without a session too.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.GetClaimsFromContext(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	auth.ClearCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}
	user, err := h.authService.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: toUserResponse(user)})
}
