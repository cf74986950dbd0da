package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/pkg/jwtx"
	"github.com/aussiebroadwan/chambers/pkg/slogx"
)

// TokenType is reported alongside every issued token.
const TokenType = "bearer"

// SessionSubject is who a session token speaks for.
type SessionSubject struct {
	Email  string
	UserID string
	Role   domain.Role
}

// IssuedToken is a signed session token and its expiry.
type IssuedToken struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// TokenService issues and verifies stateless session tokens. Tokens cannot be
// revoked; a leaked token stays valid until it expires.
type TokenService struct {
	Key    *jwtx.HMACKey
	Issuer string

	// TTL applies when Issue is called with a non-positive ttl.
	TTL time.Duration

	Now Clock
}

// Issue signs a token for subj valid for ttl (or the default TTL).
func (s *TokenService) Issue(ctx context.Context, subj SessionSubject, ttl time.Duration) (IssuedToken, error) {
	if !subj.Role.Valid() {
		return IssuedToken{}, fmt.Errorf("issue token: %w", ErrInvalidRole)
	}
	if ttl <= 0 {
		ttl = s.TTL
	}
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	now := s.Now.now()
	claims := jwtx.NewSessionClaims(subj.Email, subj.UserID, subj.Role.String(), s.Issuer, ttl, now)

	tok, err := s.Key.Sign(claims)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("issue token: %w", err)
	}

	slogx.FromContext(ctx).Debug("session token issued",
		slog.String("user_id", subj.UserID),
		slog.String("role", subj.Role.String()),
		slog.String("jti", claims.ID),
	)

	return IssuedToken{
		Token:     tok,
		TokenType: TokenType,
		ExpiresAt: claims.ExpiresAtTime(),
	}, nil
}

// Verify checks the signature, algorithm, issuer and expiry. Every failure is
// reported as ErrUnauthenticated; the parser's reason only reaches the logs.
func (s *TokenService) Verify(ctx context.Context, token string) (jwtx.Claims, error) {
	if token == "" {
		return jwtx.Claims{}, ErrUnauthenticated
	}

	v := s.Key.Verifier(jwtx.VerifyOptions{
		Issuer: s.Issuer,
		Now:    s.Now.now,
	})

	claims, err := v.Verify(token)
	if err != nil {
		slogx.FromContext(ctx).Debug("session token rejected", slog.Any("reason", err))
		return jwtx.Claims{}, ErrUnauthenticated
	}
	if _, err := domain.ParseRole(claims.Role); err != nil {
		return jwtx.Claims{}, ErrUnauthenticated
	}
	return claims, nil
}
