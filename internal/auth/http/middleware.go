package http

import (
	"context"
	"net/http"
	"slices"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/service"
	"github.com/aussiebroadwan/chambers/pkg/authsdk"
	"github.com/aussiebroadwan/chambers/pkg/httpx"
	"github.com/aussiebroadwan/chambers/pkg/slogx"
)

type ctxKey struct{}

func withUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// userFrom returns the identity resolved by authenticated.
func userFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(domain.User)
	return u, ok
}

// authenticated resolves the bearer token to a stored identity and, when
// roles are given, requires one of them exactly. The identity is always loaded
// from the store; the token's role claim alone never grants access.
func (r *Router) authenticated(required ...domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			token, ok := httpx.BearerToken(req)
			if !ok {
				writeUnauthenticated(w)
				return
			}

			var (
				user domain.User
				err  error
			)
			switch {
			case len(required) == 0:
				user, err = r.Guard.Authenticate(ctx, token)
			case len(required) == 1 && required[0] == domain.RoleAdmin:
				user, err = r.Guard.AuthenticateAdmin(ctx, token)
			case len(required) == 1:
				user, err = r.Guard.AuthenticateRole(ctx, token, required[0])
			default:
				user, err = r.Guard.Authenticate(ctx, token)
				if err == nil && !slices.Contains(required, user.Role) {
					err = service.ErrForbidden
				}
			}
			if err != nil {
				writeError(w, req, err)
				return
			}

			ctx = httpx.WithPrincipal(ctx, user.ID, user.Role.String())
			ctx = slogx.With(ctx, "user_id", user.ID)
			next.ServeHTTP(w, req.WithContext(withUser(ctx, user)))
		})
	}
}

// currentUser fetches the identity set by authenticated. A handler mounted
// without it is a wiring bug and answers 500.
func currentUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	u, ok := userFrom(r.Context())
	if !ok {
		slogx.FromContext(r.Context()).Error("handler mounted without authentication")
		authsdk.ErrServerError.WriteError(w)
	}
	return u, ok
}
