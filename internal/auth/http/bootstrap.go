package http

import (
	"net/http"

	"github.com/aussiebroadwan/chambers/internal/auth/service"
	"github.com/aussiebroadwan/chambers/pkg/authsdk"
	"github.com/aussiebroadwan/chambers/pkg/httpx"
	"github.com/aussiebroadwan/chambers/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP handles the bootstrap endpoint for initial system setup.
//
//	@Summary		Bootstrap the authentication system
//	@Description	Creates the first admin account. Only available when a bootstrap token is configured and only while no accounts exist.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string						true	"Bootstrap token for authorization"
//	@Param			request				body		authsdk.BootstrapRequest	true	"First admin account"
//	@Success		201					{object}	authsdk.BootstrapResponse
//	@Failure		400					{object}	authsdk.ErrorResponse	"Invalid request body or validation failed"
//	@Failure		401					{object}	authsdk.ErrorResponse	"Missing or invalid bootstrap token"
//	@Failure		404					{object}	authsdk.ErrorResponse	"Bootstrap not enabled (no token configured)"
//	@Failure		409					{object}	authsdk.ErrorResponse	"System already bootstrapped"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())

	// 1. Check if enabled
	if h.BootstrapService.Token == "" {
		authsdk.ErrNotFound.WithDescription("bootstrap endpoint is not enabled").WriteError(w)
		return
	}

	// 2. Require bootstrap token header
	token := r.Header.Get("X-Bootstrap-Token")
	if token == "" {
		authsdk.ErrInvalidToken.WithDescription("bootstrap token is required in X-Bootstrap-Token header").WriteError(w)
		return
	}

	// 3. Parse request body and validate
	var req authsdk.BootstrapRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("request body must be a JSON object").WriteError(w)
		return
	}
	if errs := req.Validate(); errs != nil {
		authsdk.ErrInvalidRequest.WithFields(errs).WriteError(w)
		return
	}

	// 4. Perform bootstrap
	admin, err := h.BootstrapService.Bootstrap(r.Context(), token, req.Email, req.FullName, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	l.Info("bootstrap complete", "admin_user_id", admin.ID)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.BootstrapResponse{User: toUserResponse(admin)})
}
