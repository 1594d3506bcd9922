package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/featureflags"
	"github.com/aryan0dhankhar/serverhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/serverhub/internal/security/audit"
	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationClosed is returned while FLAG_REGISTRATION_CLOSED is set.
	ErrRegistrationClosed = errors.New("registration is closed")
)

// AuthService handles authentication operations
type AuthService struct {
	users    domain.UserRepository
	sessions *auth.Sessions
	audit    *audit.Logger
	logger   *slog.Logger

	cost        int
	flagEnabled func(string) bool

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	sessions *auth.Sessions,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}

	return &AuthService{
		users:       users,
		sessions:    sessions,
		audit:       auditLog,
		logger:      logger,
		cost:        bcrypt.DefaultCost,
		flagEnabled: featureflags.Enabled,
	}
}

// LoginResult represents a successful login
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Register creates a new user account. Every input check runs before the
// repository is touched; a taken email yields domain.ErrConflict and leaves
// the existing account unchanged.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	if s.flagEnabled(featureflags.RegistrationClosed) {
		metrics.ObserveAuth("register", "closed")
		return nil, ErrRegistrationClosed
	}

	email, err := NormalizeEmail(email)
	if err != nil {
		metrics.ObserveAuth("register", "invalid")
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		metrics.ObserveAuth("register", "invalid")
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		metrics.ObserveAuth("register", "conflict")
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrConflict)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.ObserveAuth("register", "conflict")
		}
		return nil, err
	}

	metrics.ObserveAuth("register", "success")
	s.audit.LogAuth(ctx, user.ID, "register", audit.StatusSuccess, "")
	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Login authenticates a user and issues a session token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil || password == "" {
		metrics.ObserveAuth("login", "invalid")
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		// keep response time independent of whether the account exists
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		metrics.ObserveAuth("login", "failure")
		s.audit.LogAuth(ctx, "", "login", audit.StatusFailure, "unknown email")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.ObserveAuth("login", "failure")
		s.audit.LogAuth(ctx, user.ID, "login", audit.StatusFailure, "wrong password")
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue session", slog.String("user_id", user.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("issue session: %w", err)
	}

	metrics.ObserveAuth("login", "success")
	s.audit.LogAuth(ctx, user.ID, "login", audit.StatusSuccess, "")
	s.logger.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Me returns the account behind an authenticated session
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// account deleted while the token was still valid
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes the session described by claims. Nil claims is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		s.logger.Error("failed to revoke session",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("revoke session: %w", err)
	}
	metrics.ObserveAuth("logout", "success")
	s.audit.LogAuth(ctx, claims.UserID, "logout", audit.StatusSuccess, "")
	return nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("serverhub-timing-equalizer"), s.cost)
	})
	return s.dummyHash
}
