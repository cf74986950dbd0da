package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
	"github.com/aussiebroadwan/chambers/pkg/slogx"
)

// Guard resolves session tokens to stored identities and enforces roles.
// Role decisions always use the stored identity, never the token claim.
type Guard struct {
	Tokens *TokenService
	Store  store.Store
}

// Authenticate resolves token to its identity. A validly signed token for an
// identity that no longer exists yields ErrNotFound.
func (g *Guard) Authenticate(ctx context.Context, token string) (domain.User, error) {
	claims, err := g.Tokens.Verify(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	return g.load(ctx, claims.UserID)
}

// Authorize requires user to hold exactly the required role. There is no
// hierarchy, so ADMIN does not satisfy a CLIENT check.
func Authorize(user domain.User, required domain.Role) (domain.User, error) {
	if user.Role != required {
		return domain.User{}, ErrForbidden
	}
	return user, nil
}

// AuthenticateRole is Authenticate followed by Authorize.
func (g *Guard) AuthenticateRole(ctx context.Context, token string, required domain.Role) (domain.User, error) {
	user, err := g.Authenticate(ctx, token)
	if err != nil {
		return domain.User{}, err
	}

	if _, err := Authorize(user, required); err != nil {
		slogx.FromContext(ctx).Info("role check failed",
			slog.String("user_id", user.ID),
			slog.String("required", required.String()),
		)
		return domain.User{}, err
	}
	return user, nil
}

// AuthenticateAdmin rejects tokens whose role claim is not ADMIN before
// touching the store, then still loads the identity and checks the stored
// role so a stale claim cannot grant access.
func (g *Guard) AuthenticateAdmin(ctx context.Context, token string) (domain.User, error) {
	claims, err := g.Tokens.Verify(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	if claims.Role != domain.RoleAdmin.String() {
		return domain.User{}, ErrForbidden
	}

	user, err := g.load(ctx, claims.UserID)
	if err != nil {
		return domain.User{}, err
	}
	return Authorize(user, domain.RoleAdmin)
}

func (g *Guard) load(ctx context.Context, userID string) (domain.User, error) {
	user, err := g.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Warn("token references unknown user", slog.String("user_id", userID))
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return domain.User{}, ErrUnauthenticated
	}
	return user, nil
}
