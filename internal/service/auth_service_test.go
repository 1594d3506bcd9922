package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/featureflags"
	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, "  Alice@Example.com ", "Password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if u.ID == "" || u.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "Password123" {
		t.Fatal("password stored in clear")
	}

	lr, err := f.auth.Login(ctx, "alice@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" || lr.User.ID != u.ID || lr.ExpiresAt.IsZero() {
		t.Fatalf("unexpected login result: %+v", lr)
	}

	if _, err := f.auth.Login(ctx, "alice@example.com", "Wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := f.auth.Login(ctx, "nobody@example.com", "Password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestRegisterDuplicateKeepsFirstUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.auth.Register(ctx, "a@b.com", "secret123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err = f.auth.Register(ctx, "a@b.com", "other-password")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	stored, err := f.store.Users().GetByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.ID != first.ID || stored.PasswordHash != first.PasswordHash {
		t.Fatal("first user's record was altered")
	}
	if _, err := f.auth.Login(ctx, "a@b.com", "secret123"); err != nil {
		t.Fatalf("original password should still work: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password, field string
	}{
		{"missing email", "", "secret123", "email"},
		{"malformed email", "not-an-email", "secret123", "email"},
		{"display name", "Alice <a@b.com>", "secret123", "email"},
		{"short password", "a@b.com", "short", "password"},
		{"long password", "a@b.com", string(make([]byte, 73)), "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, tc.email, tc.password)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestRegisterClosed(t *testing.T) {
	f := newFixture(t)
	f.auth.flagEnabled = func(name string) bool { return name == featureflags.RegistrationClosed }

	if _, err := f.auth.Register(context.Background(), "a@b.com", "secret123"); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected registration closed, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "bob@example.com")

	lr, err := f.auth.Login(ctx, "bob@example.com", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := f.sessions.Authenticate(ctx, lr.Token)
	if err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	if err := f.auth.Logout(ctx, claims); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.sessions.Authenticate(ctx, lr.Token); !errors.Is(err, auth.ErrRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "carol@example.com")

	u, err := f.auth.Me(ctx, id)
	if err != nil || u.Email != "carol@example.com" {
		t.Fatalf("unexpected me result: %+v %v", u, err)
	}
	if _, err := f.auth.Me(ctx, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.auth.Me(ctx, "11111111-1111-1111-1111-111111111111"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for deleted account, got %v", err)
	}
}
