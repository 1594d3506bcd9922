package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/serverhub/internal/repository"
	"github.com/aryan0dhankhar/serverhub/internal/repository/memory"
	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
)

type fixture struct {
	store    *memory.Store
	sessions *auth.Sessions
	auth     *AuthService
	servers  *ServerService
	sections *SectionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	sessions := auth.NewSessions(
		auth.NewTokenManager("test-secret", "serverhub", time.Hour),
		repository.NewMemoryRevocationStore(),
		nil,
	)
	authSvc := NewAuthService(store.Users(), sessions, nil, nil)
	authSvc.cost = bcrypt.MinCost
	authSvc.flagEnabled = func(string) bool { return false }

	servers := NewServerService(store.Servers(), nil, nil, nil)
	return &fixture{
		store:    store,
		sessions: sessions,
		auth:     authSvc,
		servers:  servers,
		sections: NewSectionService(servers, store.Sections(), nil, nil),
	}
}

func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	u, err := f.auth.Register(context.Background(), email, "secret123")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u.ID
}
