package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	subj := SessionSubject{Email: "a@x.com", UserID: "u-1", Role: domain.RoleClient}

	t.Run("round trip", func(t *testing.T) {
		tok, err := e.tokens.Issue(ctx, subj, 0)
		require.NoError(t, err)
		require.Equal(t, TokenType, tok.TokenType)
		require.Equal(t, t0.Add(time.Hour), tok.ExpiresAt)

		claims, err := e.tokens.Verify(ctx, tok.Token)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", claims.Subject)
		require.Equal(t, "u-1", claims.UserID)
		require.Equal(t, "CLIENT", claims.Role)
	})

	t.Run("rejects invalid role", func(t *testing.T) {
		_, err := e.tokens.Issue(ctx, SessionSubject{UserID: "u-1", Role: "OWNER"}, 0)
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := e.tokens.Verify(ctx, "")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("corrupted signature", func(t *testing.T) {
		tok, err := e.tokens.Issue(ctx, subj, 0)
		require.NoError(t, err)

		dot := strings.LastIndexByte(tok.Token, '.')
		sig := []byte(tok.Token[dot+1:])
		for i := range sig {
			corrupt := append([]byte(nil), sig...)
			// The last character carries padding bits, so swap in a value
			// that differs in its high bits.
			if strings.IndexByte("ABCD", corrupt[i]) >= 0 {
				corrupt[i] = 'Q'
			} else {
				corrupt[i] = 'A'
			}
			_, err := e.tokens.Verify(ctx, tok.Token[:dot+1]+string(corrupt))
			require.ErrorIs(t, err, ErrUnauthenticated, "byte %d", i)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := e.tokens.Verify(ctx, "not.a.token")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := &TokenService{Key: e.tokens.Key, Issuer: "someone-else", Now: e.clock.Now}
		tok, err := other.Issue(ctx, subj, 0)
		require.NoError(t, err)
		_, err = e.tokens.Verify(ctx, tok.Token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	tok, err := e.tokens.Issue(ctx, SessionSubject{Email: "a@x.com", UserID: "u-1", Role: domain.RoleAdmin}, 10*time.Minute)
	require.NoError(t, err)

	e.clock.Advance(10*time.Minute - time.Second)
	_, err = e.tokens.Verify(ctx, tok.Token)
	require.NoError(t, err)

	e.clock.Advance(2 * time.Second)
	_, err = e.tokens.Verify(ctx, tok.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)

	t.Run("issued between seconds", func(t *testing.T) {
		clock := &testClock{now: t0.Add(900 * time.Millisecond)}
		svc := &TokenService{Key: e.tokens.Key, Issuer: "chambers-test", Now: clock.Now}

		tok, err := svc.Issue(ctx, SessionSubject{Email: "a@x.com", UserID: "u-1", Role: domain.RoleClient}, 10*time.Minute)
		require.NoError(t, err)
		require.Equal(t, t0.Add(10*time.Minute+900*time.Millisecond), tok.ExpiresAt)

		clock.Advance(10*time.Minute - 500*time.Millisecond)
		_, err = svc.Verify(ctx, tok.Token)
		require.NoError(t, err)

		clock.Advance(499 * time.Millisecond)
		_, err = svc.Verify(ctx, tok.Token)
		require.NoError(t, err)

		clock.Advance(time.Millisecond)
		_, err = svc.Verify(ctx, tok.Token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("real clock", func(t *testing.T) {
		svc := &TokenService{Key: e.tokens.Key, Issuer: "chambers-test"}
		before := time.Now()

		tok, err := svc.Issue(ctx, SessionSubject{Email: "a@x.com", UserID: "u-1", Role: domain.RoleClient}, time.Minute)
		require.NoError(t, err)
		require.Equal(t, tok.ExpiresAt, tok.ExpiresAt.Truncate(Resolution))
		require.WithinDuration(t, before.Add(time.Minute), tok.ExpiresAt, time.Second)

		svc.Now = func() time.Time { return tok.ExpiresAt.Add(-time.Millisecond) }
		claims, err := svc.Verify(ctx, tok.Token)
		require.NoError(t, err)
		require.Equal(t, tok.ExpiresAt, claims.ExpiresAtTime())

		svc.Now = func() time.Time { return tok.ExpiresAt }
		_, err = svc.Verify(ctx, tok.Token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestTokenDefaultTTL(t *testing.T) {
	t.Parallel()
	key, err := jwtx.NewHMACKey("HS256", []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	svc := &TokenService{Key: key, Issuer: "x", Now: func() time.Time { return t0 }}
	tok, err := svc.Issue(context.Background(), SessionSubject{UserID: "u", Role: domain.RoleClient}, 0)
	require.NoError(t, err)
	require.Equal(t, t0.Add(jwtx.DefaultAccessTokenTTL), tok.ExpiresAt)
}
