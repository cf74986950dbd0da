package http

import (
	"net/http"

	"github.com/aussiebroadwan/chambers/pkg/httpx"
)

// HomeHandler serves the role-specific landing endpoints. The role gate is
// applied by the router, so the handler only echoes the caller.
type HomeHandler struct{}

// ServeHTTP godoc
//
//	@Summary		Role home
//	@Description	/api/client-home requires CLIENT and /api/fee-earner-home requires FEE_EARNER. There is no role hierarchy.
//	@Tags			Home
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Wrong role"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Account no longer exists"
//	@Router			/api/client-home [get]
//	@Router			/api/fee-earner-home [get].
func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
