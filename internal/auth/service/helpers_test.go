package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
	"github.com/aussiebroadwan/chambers/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/chambers/pkg/cryptox"
	"github.com/aussiebroadwan/chambers/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var t0 = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// env wires every service over one in-memory store and a shared clock.
type env struct {
	store     store.Store
	clock     *testClock
	hasher    *cryptox.PasswordHasher
	tokens    *TokenService
	guard     *Guard
	invites   *InviteService
	users     *UserService
	bootstrap *BootstrapService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	key, err := jwtx.NewHMACKey("HS256", []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	clock := &testClock{now: t0}
	hasher := cryptox.NewPasswordHasher(bcrypt.MinCost)
	tokens := &TokenService{Key: key, Issuer: "chambers-test", TTL: time.Hour, Now: clock.Now}

	return &env{
		store:     s,
		clock:     clock,
		hasher:    hasher,
		tokens:    tokens,
		guard:     &Guard{Tokens: tokens, Store: s},
		invites:   &InviteService{Store: s, Hasher: hasher, Now: clock.Now},
		users:     &UserService{Store: s, Hasher: hasher, Tokens: tokens, Now: clock.Now},
		bootstrap: &BootstrapService{Store: s, Hasher: hasher, Token: "bootstrap-secret", Now: clock.Now},
	}
}

func (e *env) createUser(t *testing.T, email string, role domain.Role) domain.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), NewUser{
		Email:    email,
		FullName: "Test " + string(role),
		Password: "password-" + email,
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (e *env) login(t *testing.T, u domain.User) string {
	t.Helper()
	res, err := e.users.Login(context.Background(), u.Email, "password-"+u.Email)
	require.NoError(t, err)
	return res.Token.Token
}
