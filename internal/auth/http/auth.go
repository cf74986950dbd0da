package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/chambers/internal/auth/service"
	"github.com/aussiebroadwan/chambers/pkg/authsdk"
	"github.com/aussiebroadwan/chambers/pkg/httpx"
)

type AuthHandler struct {
	UserService   *service.UserService
	InviteService *service.InviteService
	Metrics       *Metrics
}

// HandleLogin exchanges credentials for a session token.
//
//	@Summary		Log in
//	@Description	Verifies email and password and returns a short-lived session token together with the account summary.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Incorrect email or password"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("request body must be a JSON object").WriteError(w)
		return
	}
	if errs := req.Validate(); errs != nil {
		authsdk.ErrInvalidRequest.WithFields(errs).WriteError(w)
		return
	}

	res, err := h.UserService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			h.Metrics.LoginAttempt("failure")
			authsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		h.Metrics.LoginAttempt("error")
		writeError(w, r, err)
		return
	}
	h.Metrics.LoginAttempt("success")

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		AccessToken: res.Token.Token,
		TokenType:   res.Token.TokenType,
		ExpiresAt:   res.Token.ExpiresAt,
		User:        toUserResponse(res.User),
	})
}

// HandleRegister accepts an invite and creates the invitee's account.
//
//	@Summary		Register with an invite
//	@Description	Claims a pending invite. The account gets the invite's email and role. Each invite can be used once.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Invite token and account details"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed or email does not match the invite"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Unknown invite token"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already registered"
//	@Failure		410		{object}	authsdk.ErrorResponse	"Invite expired or no longer valid"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("request body must be a JSON object").WriteError(w)
		return
	}
	if errs := req.Validate(); errs != nil {
		authsdk.ErrInvalidRequest.WithFields(errs).WriteError(w)
		return
	}

	user, err := h.InviteService.Accept(r.Context(), service.AcceptInvite{
		Token:    req.InviteToken,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		h.Metrics.InviteEvent("accept", apiError(err).Code)
		if errors.Is(err, service.ErrInvalidRequest) {
			authsdk.ErrInvalidRequest.WithDescription("email does not match the invite").WriteError(w)
			return
		}
		writeError(w, r, err)
		return
	}
	h.Metrics.InviteEvent("accept", "ok")

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleMe returns the caller's account.
//
//	@Summary		Current account
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Account no longer exists"
//	@Router			/api/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
