package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// CookieName is the cookie carrying the session token for browser requests.
const CookieName = "session"

// ErrRevoked is returned for tokens that were logged out.
var ErrRevoked = errors.New("session revoked")

// RevocationStore remembers logged out token ids until they expire
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Sessions validates and revokes session tokens
type Sessions struct {
	tokens     *TokenManager
	revocation RevocationStore
	logger     *slog.Logger
}

func NewSessions(tokens *TokenManager, revocation RevocationStore, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{tokens: tokens, revocation: revocation, logger: logger}
}

// Issue creates a token for the user
func (s *Sessions) Issue(userID, email string) (string, *Claims, error) {
	return s.tokens.GenerateToken(userID, email)
}

// Authenticate validates token and rejects revoked ones. A failing
// revocation store is treated as "not authenticated".
func (s *Sessions) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocation.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("revocation check failed",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke invalidates the token identified by claims
func (s *Sessions) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revocation.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// TokenFromRequest returns the bearer token, falling back to the session cookie
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, err := ExtractToken(h); err == nil {
			return token
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetCookie stores token in the session cookie
func SetCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
