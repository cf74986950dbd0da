package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/chambers/internal/auth/service"
	"github.com/aussiebroadwan/chambers/pkg/authsdk"
	"github.com/aussiebroadwan/chambers/pkg/httpx"
	"github.com/aussiebroadwan/chambers/pkg/slogx"
)

// errorMap translates service outcomes to API errors.
var errorMap = []struct {
	err error
	api *authsdk.APIError
}{
	{service.ErrUnauthenticated, authsdk.ErrInvalidToken},
	{service.ErrForbidden, authsdk.ErrForbidden},
	{service.ErrNotFound, authsdk.ErrNotFound},
	{service.ErrInvalidRole, authsdk.ErrInvalidRole},
	{service.ErrAlreadyRegistered, authsdk.ErrAlreadyRegistered},
	{service.ErrDuplicatePending, authsdk.ErrDuplicatePending},
	{service.ErrNoLongerValid, authsdk.ErrInviteNoLongerValid},
	{service.ErrExpired, authsdk.ErrInviteExpired},
	{service.ErrInvalidRequest, authsdk.ErrInvalidRequest},
	{service.ErrBootstrapAlready, authsdk.ErrAlreadyBootstrapped},
	{service.ErrBootstrapUnauthorized, authsdk.ErrInvalidToken.WithDescription("invalid bootstrap token")},
}

// apiError maps err to the response it should produce. Anything outside the
// service taxonomy is a server error.
func apiError(err error) *authsdk.APIError {
	for _, m := range errorMap {
		if errors.Is(err, m.err) {
			return m.api
		}
	}
	return authsdk.ErrServerError
}

// writeError logs systemic failures and writes the mapped error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	api := apiError(err)
	if api == authsdk.ErrServerError {
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	}
	if api.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	api.WriteError(w)
}

func writeUnauthenticated(w http.ResponseWriter) {
	httpx.WriteBearerError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken, "authentication required")
}
